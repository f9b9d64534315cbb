package app

import (
	"testing"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/forktilt/internal/imu"
)

func barRow(img *image1bit.VerticalLSB) []bool {
	y := (barTop + barBottom) / 2
	row := make([]bool, displayW)
	for x := range row {
		row[x] = img.BitAt(x, y) == image1bit.On
	}
	return row
}

func TestRenderTiltBar(t *testing.T) {
	cases := []struct {
		angle float64
		on    []int
		off   []int
	}{
		{45, []int{64, 70, 95}, []int{30, 63, 96, 120}},
		{-45, []int{32, 50, 64}, []int{20, 70, 100}},
		{0, []int{64}, []int{10, 63, 65, 120}},
	}
	for _, c := range cases {
		row := barRow(renderTilt(imu.Reading{Angle: c.angle, TempCenti: 2500}, true))
		for _, x := range c.on {
			if !row[x] {
				t.Errorf("angle %v: x=%d off, want on", c.angle, x)
			}
		}
		for _, x := range c.off {
			if row[x] {
				t.Errorf("angle %v: x=%d on, want off", c.angle, x)
			}
		}
	}
}

func TestRenderTiltDrawsTextAndRule(t *testing.T) {
	img := renderTilt(imu.Reading{}, false)
	for x := 0; x < displayW; x++ {
		if img.BitAt(x, ruleY) != image1bit.On {
			t.Fatalf("rule missing at x=%d", x)
		}
	}
	lit := 0
	for y := 0; y < ruleY; y++ {
		for x := 0; x < displayW; x++ {
			if img.BitAt(x, y) == image1bit.On {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("header text not drawn")
	}
	// No bar while waiting for data.
	for x, on := range barRow(img) {
		if on {
			t.Fatalf("bar pixel at x=%d without data", x)
		}
	}
}
