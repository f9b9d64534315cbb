// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mpu6050 drives an InvenSense MPU-6050 over a register transport
// and derives an accelerometer-only tilt angle.
//
// Usage is pull based:
//
//	dev, err := mpu6050.New(mpu6050.NewI2C(bus, nil), &mpu6050.DefaultOpts)
//	...
//	if err := dev.Init(); err != nil { ... }
//	for {
//		if err := dev.Update(); err != nil { ... } // previous values are kept
//		angle := dev.Angle()
//	}
//
// A Dev is not safe for concurrent use.
package mpu6050

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/forktilt/internal/imu"
	"github.com/relabs-tech/forktilt/internal/orientation"
)

// Opts selects the filter policy and angle formula.
type Opts struct {
	Name   string // label copied into readings
	Filter FilterPolicy
	Angle  orientation.AngleMode
}

// DefaultOpts is the rolling trimmed mean with the three-axis angle.
var DefaultOpts = Opts{
	Name:   "mpu6050",
	Filter: FilterRolling,
	Angle:  orientation.ThreeAxis,
}

// State is the driver lifecycle state.
type State int

const (
	Unconfigured State = iota
	Ready
	Updating
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Ready:
		return "ready"
	case Updating:
		return "updating"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Dev is one MPU-6050. All values start at zero and only change when an
// Update completes without error.
type Dev struct {
	t     Transport
	opts  Opts
	state State

	windows *axisWindows
	blockN  int
	sleep   func(time.Duration)
	now     func() time.Time

	raw     imu.Raw
	accel   imu.Triple
	gyro    imu.Triple
	angle   float64
	updated time.Time

	warnedUnconfigured bool
}

var _ imu.RawSource = (*Dev)(nil)

// New returns a driver on t. It does not touch the bus; call Init.
func New(t Transport, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	switch opts.Filter {
	case FilterRolling, FilterBlock:
	default:
		return nil, fmt.Errorf("mpu6050: unknown filter policy %v", opts.Filter)
	}
	w, err := newAxisWindows(WindowSize)
	if err != nil {
		return nil, err
	}
	d := &Dev{
		t:       t,
		opts:    *opts,
		windows: w,
		blockN:  BlockReadings,
		sleep:   time.Sleep,
		now:     time.Now,
	}
	if d.opts.Name == "" {
		d.opts.Name = DefaultOpts.Name
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("MPU6050{%s, filter=%s, angle=%s}", d.opts.Name, d.opts.Filter, d.opts.Angle)
}

// Init wakes the device with the gyro-Y PLL as clock and sets the accel and
// gyro full-scale ranges, in that order. Nothing is read back.
func (d *Dev) Init() error {
	writes := []struct {
		reg, value byte
	}{
		{RegPwrMgmt1, ClkSelPLLGyroY},
		{RegAccelConfig, AccelFS8G},
		{RegGyroConfig, GyroFS500},
	}
	for _, w := range writes {
		if err := d.t.WriteRegister(w.reg, w.value); err != nil {
			return err
		}
	}
	d.state = Ready
	log.Debugf("mpu6050: %s configured (PWR_MGMT_1=0x%02X ACCEL_CONFIG=0x%02X GYRO_CONFIG=0x%02X)",
		d.opts.Name, ClkSelPLLGyroY, AccelFS8G, GyroFS500)
	return nil
}

// Halt puts the device to sleep. A following Init wakes it again.
func (d *Dev) Halt() error {
	if err := d.t.WriteRegister(RegPwrMgmt1, 0x40|ClkSelPLLGyroY); err != nil {
		return err
	}
	d.state = Unconfigured
	return nil
}

// WhoAmI reads the identity register.
func (d *Dev) WhoAmI() (byte, error) {
	return ReadRegister(d.t, RegWhoAmI)
}

// ReadRaw performs one 14 byte burst from ACCEL_XOUT_H and decodes it.
// It does not change the driver state.
func (d *Dev) ReadRaw() (imu.Raw, error) {
	b, err := d.t.ReadBurst(RegAccelXOutH, BurstLength)
	if err != nil {
		return imu.Raw{}, err
	}
	if len(b) < BurstLength {
		return imu.Raw{}, &BusError{Op: "read", Reg: RegAccelXOutH, Err: errShortRead}
	}
	return decodeBurst(b), nil
}

// Update acquires, filters and computes the angle. On error every accessor
// keeps returning the previous cycle's values.
func (d *Dev) Update() error {
	if d.state == Unconfigured && !d.warnedUnconfigured {
		log.Warnf("mpu6050: %s Update called before Init, device may still be asleep", d.opts.Name)
		d.warnedUnconfigured = true
	}
	prev := d.state
	d.state = Updating
	defer func() { d.state = prev }()

	var (
		raw         imu.Raw
		accel, gyro imu.Triple
	)
	switch d.opts.Filter {
	case FilterBlock:
		var err error
		accel, gyro, raw, err = blockAverage(d.blockN, BlockDelay, d.sleep, d)
		if err != nil {
			return err
		}
	default:
		var err error
		raw, err = d.ReadRaw()
		if err != nil {
			return err
		}
		accel = d.windows.filter(raw.Accel)
		// Gyro axes are not smoothed by the rolling policy.
		gyro = raw.Gyro
	}

	d.raw = raw
	d.accel = accel
	d.gyro = gyro
	d.angle = orientation.Tilt(d.opts.Angle, accel)
	d.updated = d.now()
	return nil
}

// State returns the lifecycle state.
func (d *Dev) State() State { return d.state }

// Accel returns the last filtered accelerometer triple.
func (d *Dev) Accel() imu.Triple { return d.accel }

// Gyro returns the last gyro triple: averaged under FilterBlock, the latest
// raw reading under FilterRolling.
func (d *Dev) Gyro() imu.Triple { return d.gyro }

// RawAccel returns the accelerometer triple of the last burst.
func (d *Dev) RawAccel() imu.Triple { return d.raw.Accel }

// RawGyro returns the gyro triple of the last burst.
func (d *Dev) RawGyro() imu.Triple { return d.raw.Gyro }

// TempRaw returns the last raw TEMP_OUT value.
func (d *Dev) TempRaw() int16 { return d.raw.TempRaw }

// TempCenti returns the last temperature in °C ×100.
func (d *Dev) TempCenti() int16 { return d.raw.TempCenti }

// Temperature returns TempCenti as a physic.Temperature.
func (d *Dev) Temperature() physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(d.raw.TempCenti)*10*physic.MilliKelvin
}

// Angle returns the last tilt angle in degrees.
func (d *Dev) Angle() float64 { return d.angle }

// Updated returns the time of the last successful Update.
func (d *Dev) Updated() time.Time { return d.updated }

// Opts returns the options the driver was built with.
func (d *Dev) Opts() Opts { return d.opts }

// Reading snapshots the accessors into one record.
func (d *Dev) Reading() imu.Reading {
	return imu.Reading{
		Source:    d.opts.Name,
		Accel:     d.accel,
		Gyro:      d.gyro,
		TempCenti: d.raw.TempCenti,
		TempC:     d.Temperature().Celsius(),
		Angle:     d.angle,
		Mode:      d.opts.Angle.String(),
		Filter:    d.opts.Filter.String(),
		Time:      d.updated,
	}
}
