// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mpu6050

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/forktilt/internal/imu"
)

// Scale factors for the ranges Init selects.
const (
	simAccelLSBPerG   = 4096.0 // ±8g
	simGyroLSBPerDegS = 65.5   // ±500°/s
)

// ErrSimNACK is returned by SimBus for injected failures and wrong addresses.
var ErrSimNACK = errors.New("sim: NACK")

// RegWrite is one register write seen by SimBus.
type RegWrite struct {
	Reg   byte
	Value byte
}

// SimOpts configures a SimBus.
type SimOpts struct {
	Seed   uint64  // noise seed
	Noise  float64 // accel noise amplitude, counts
	Spikes float64 // probability of a full-scale outlier per axis per read
	TempC  float64 // die temperature
}

// DefaultSimOpts rocks gently at room temperature with some noise and rare
// outliers.
var DefaultSimOpts = SimOpts{Seed: 1, Noise: 40, Spikes: 0.02, TempC: 25}

// SimBus is an in-memory MPU-6050 on an I2C bus. It satisfies both
// periph.io i2c.Bus and tinygo drivers.I2C.
//
// By default the data registers follow a tilt that rocks ±20° about X,
// generated from the elapsed time. SetFrame freezes them to fixed values.
type SimBus struct {
	mu     sync.Mutex
	regs   [128]byte
	writes []RegWrite

	opts  SimOpts
	rng   *rand.Rand
	start time.Time
	now   func() time.Time

	frozen   bool
	failNext int
	failErr  error
	txCount  int
}

// NewSimBus returns a powered-on, sleeping simulated device.
func NewSimBus(opts *SimOpts) *SimBus {
	if opts == nil {
		opts = &DefaultSimOpts
	}
	s := &SimBus{
		opts:  *opts,
		rng:   rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9E3779B97F4A7C15)),
		start: time.Now(),
		now:   time.Now,
	}
	s.regs[RegPwrMgmt1] = 0x40
	s.regs[RegWhoAmI] = WhoAmIValue
	return s
}

func (s *SimBus) String() string { return "sim-i2c" }

// SetSpeed is accepted and ignored.
func (s *SimBus) SetSpeed(physic.Frequency) error { return nil }

// Close is accepted and ignored.
func (s *SimBus) Close() error { return nil }

// Tx implements the bus transaction: w[0] selects the register, the rest of
// w is written from there and r is filled from there.
func (s *SimBus) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++

	if s.failNext > 0 {
		s.failNext--
		return s.failErr
	}
	if addr != Address {
		return fmt.Errorf("%w: no device at 0x%02X", ErrSimNACK, addr)
	}
	if len(w) == 0 {
		return fmt.Errorf("%w: empty write", ErrSimNACK)
	}
	reg := w[0]
	for i, v := range w[1:] {
		at := (int(reg) + i) % len(s.regs)
		s.regs[at] = v
		s.writes = append(s.writes, RegWrite{Reg: byte(at), Value: v})
	}
	if len(r) == 0 {
		return nil
	}
	if !s.frozen && s.regs[RegPwrMgmt1]&0x40 == 0 {
		s.synthesize()
	}
	for i := range r {
		r[i] = s.regs[(int(reg)+i)%len(s.regs)]
	}
	return nil
}

// SetFrame freezes the data registers to the given values.
func (s *SimBus) SetFrame(accel imu.Triple, tempRaw int16, gyro imu.Triple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
	copy(s.regs[RegAccelXOutH:], EncodeBurst(accel, tempRaw, gyro))
}

// Fail makes the next n transactions return err (ErrSimNACK when nil).
func (s *SimBus) Fail(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = ErrSimNACK
	}
	s.failNext = n
	s.failErr = err
}

// Writes returns every register write seen so far.
func (s *SimBus) Writes() []RegWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RegWrite(nil), s.writes...)
}

// Register returns the current content of reg.
func (s *SimBus) Register(reg byte) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[reg%byte(len(s.regs))]
}

// TxCount is the number of transactions attempted.
func (s *SimBus) TxCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

// synthesize fills the data registers from the simulated motion.
func (s *SimBus) synthesize() {
	elapsed := s.now().Sub(s.start).Seconds()
	tiltDeg := 20 * math.Sin(elapsed)
	rateDegS := 20 * math.Cos(elapsed)
	rollDeg := 5 * math.Sin(elapsed*0.7)

	tilt := tiltDeg * math.Pi / 180
	roll := rollDeg * math.Pi / 180
	g := simAccelLSBPerG

	accel := imu.Triple{
		X: s.noisy(g * math.Cos(tilt) * math.Sin(roll)),
		Y: s.noisy(g * math.Sin(tilt)),
		Z: s.noisy(g * math.Cos(tilt) * math.Cos(roll)),
	}
	gyro := imu.Triple{
		X: clamp16(rateDegS * simGyroLSBPerDegS),
	}
	tempRaw := clamp16((s.opts.TempC - 36.53) * 340)
	copy(s.regs[RegAccelXOutH:], EncodeBurst(accel, tempRaw, gyro))
}

func (s *SimBus) noisy(v float64) int16 {
	if s.opts.Spikes > 0 && s.rng.Float64() < s.opts.Spikes {
		if s.rng.IntN(2) == 0 {
			return math.MaxInt16
		}
		return math.MinInt16
	}
	return clamp16(v + (s.rng.Float64()*2-1)*s.opts.Noise)
}

func clamp16(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(math.Round(v))
}
