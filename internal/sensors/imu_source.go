// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/forktilt/internal/config"
	"github.com/relabs-tech/forktilt/internal/sensors/mpu6050"
)

// busMu serialises every transport this package opens in the process.
var busMu sync.Mutex

// Source is one MPU-6050 brought up on a bus, real or simulated.
type Source struct {
	Dev *mpu6050.Dev
	Sim *mpu6050.SimBus // nil on hardware

	transport mpu6050.Transport
	bus       i2c.BusCloser
}

// OpenSource opens the bus named by cfg (or the simulator when UseSim is
// set), checks the device identity and runs Init.
func OpenSource(cfg *config.Config) (*Source, error) {
	opts := mpu6050.Opts{Name: mpu6050.DefaultOpts.Name, Filter: cfg.Filter, Angle: cfg.Angle}

	if cfg.UseSim {
		sim := mpu6050.NewSimBus(nil)
		opts.Name = "sim"
		log.Infof("sensors: using simulated MPU-6050 on %s", sim)
		src, err := newSource(sim, &opts)
		if err != nil {
			return nil, err
		}
		src.Sim = sim
		return src, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s: periph host init: %w", opts.Name, err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("%s: open I2C bus %q: %w", opts.Name, cfg.I2CBus, err)
	}
	log.Infof("sensors: opened I2C bus %s", bus)
	return newSource(bus, &opts)
}

func newSource(bus i2c.BusCloser, opts *mpu6050.Opts) (*Source, error) {
	tr := mpu6050.NewI2C(bus, &busMu)
	dev, err := mpu6050.New(tr, opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("%s: device creation: %w", opts.Name, err)
	}

	// Identity is informative only; clones answer with other values.
	if id, err := dev.WhoAmI(); err != nil {
		log.Warnf("%s: failed to read WHO_AM_I: %v", opts.Name, err)
	} else if id != mpu6050.WhoAmIValue {
		log.Warnf("%s: WHO_AM_I = 0x%02X, expected 0x%02X", opts.Name, id, mpu6050.WhoAmIValue)
	} else {
		log.Infof("%s: WHO_AM_I = 0x%02X", opts.Name, id)
	}

	if err := dev.Init(); err != nil {
		bus.Close()
		return nil, fmt.Errorf("%s: initialization: %w", opts.Name, err)
	}
	log.Infof("%s: accelerometer range ±8g, gyroscope range ±500°/s", opts.Name)
	log.Infof("%s: filter %s, angle %s", opts.Name, opts.Filter, opts.Angle)

	return &Source{Dev: dev, transport: tr, bus: bus}, nil
}

// Close puts the device to sleep and releases the bus.
func (s *Source) Close() error {
	if err := s.Dev.Halt(); err != nil {
		log.Warnf("%s: halt: %v", s.Dev.Opts().Name, err)
	}
	return s.bus.Close()
}
