package app

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/forktilt/internal/config"
	"github.com/relabs-tech/forktilt/internal/imu"
)

// Display geometry, 128x64 panel.
const (
	displayW = 128
	displayH = 64

	ssd1306DefaultAddr = 0x3C

	headerBaseline = 12
	ruleY          = 15
	barTop         = 19
	barBottom      = 27
	angleBaseline  = 44
	tempBaseline   = 61
)

// displayBus moves the controller from its fixed default address to the
// configured one.
type displayBus struct {
	i2c.Bus
	addr uint16
}

func (b *displayBus) Tx(addr uint16, w, r []byte) error {
	if addr == ssd1306DefaultAddr {
		addr = b.addr
	}
	return b.Bus.Tx(addr, w, r)
}

// displayData holds the latest reading received over MQTT.
type displayData struct {
	mu      sync.RWMutex
	reading imu.Reading
	have    bool
}

func (d *displayData) set(r imu.Reading) {
	d.mu.Lock()
	d.reading = r
	d.have = true
	d.mu.Unlock()
}

func (d *displayData) snapshot() (imu.Reading, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reading, d.have
}

// RunDisplay shows the tilt published on TOPIC_TILT on an SSD1306 panel:
// a FORKTILT header, a bar growing from the centre, the signed angle or the
// level label, and the die temperature.
func RunDisplay(ctx context.Context) error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(&displayBus{Bus: bus, addr: cfg.DisplayI2CAddr}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display at 0x%02X: %w", cfg.DisplayI2CAddr, err)
	}
	defer dev.Halt()
	log.Infof("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderTilt(imu.Reading{}, false), image.Point{}); err != nil {
		log.Warnf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	client, err := connectMQTT("display", cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(mqttDisconnectQuiesce)

	if err := subscribeJSON(client, "display", cfg.TopicTilt, data.set); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Info("display: starting update loop")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r, have := data.snapshot()
			if err := dev.Draw(dev.Bounds(), renderTilt(r, have), image.Point{}); err != nil {
				log.Warnf("display: error updating display: %v", err)
			}
		}
	}
}

// renderTilt draws one frame. Without data it shows a waiting screen under
// the header.
func renderTilt(r imu.Reading, have bool) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayW, displayH))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	drawText := func(x, y int, s string) {
		drawer.Dot = fixed.P(x, y)
		drawer.DrawString(s)
	}

	drawText(36, headerBaseline, "FORKTILT")
	for x := 0; x < displayW; x++ {
		img.SetBit(x, ruleY, image1bit.On)
	}

	if !have {
		drawText(29, angleBaseline, "Waiting...")
		return img
	}

	from, to := BarSpan(r.Angle, displayW)
	for y := barTop; y <= barBottom; y++ {
		for x := from; x < to; x++ {
			img.SetBit(x, y, image1bit.On)
		}
		// centre mark
		img.SetBit(displayW/2, y, image1bit.On)
	}

	drawText(36, angleBaseline, FormatAngle(r.Angle))
	drawText(0, tempBaseline, "IC Temp:"+FormatTempCenti(r.TempCenti)+" C")
	return img
}
