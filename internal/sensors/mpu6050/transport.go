// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mpu6050

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"tinygo.org/x/drivers"
)

// Transport is the register-level view of the bus the driver needs.
// It has no knowledge of what the registers mean.
type Transport interface {
	// ReadBurst writes the start register then reads n consecutive
	// registers in one transaction.
	ReadBurst(start byte, n int) ([]byte, error)
	// WriteRegister writes value into reg in one transaction.
	WriteRegister(reg, value byte) error
}

// BusError is the only error kind the driver reports. It wraps whatever the
// bus returned (NACK, timeout, short read) without interpreting it.
type BusError struct {
	Op  string // "read" or "write"
	Reg byte
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("mpu6050: bus %s at 0x%02X: %v", e.Op, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// IsBusError reports whether err is or wraps a *BusError.
func IsBusError(err error) bool {
	var be *BusError
	return errors.As(err, &be)
}

// errShortRead is wrapped in a BusError when a bus returns fewer bytes
// than requested.
var errShortRead = errors.New("short read")

// exchanger is one addressed device on a bus: write w, then read into r,
// within a single transaction.
type exchanger interface {
	Tx(w, r []byte) error
}

// I2CTransport implements Transport on an I2C bus at Address.
type I2CTransport struct {
	dev exchanger
	mu  *sync.Mutex // shared by every transport on the same physical bus; may be nil
}

// NewI2C returns a transport on a periph.io bus. Pass the same mutex to every
// transport that shares bus, or nil if the device owns the bus.
func NewI2C(bus i2c.Bus, mu *sync.Mutex) *I2CTransport {
	return &I2CTransport{dev: &i2c.Dev{Bus: bus, Addr: Address}, mu: mu}
}

// NewTinyGo returns a transport on a TinyGo driver bus, for microcontroller
// builds where periph.io is not available.
func NewTinyGo(bus drivers.I2C, mu *sync.Mutex) *I2CTransport {
	return &I2CTransport{dev: &tinygoDev{bus: bus, addr: Address}, mu: mu}
}

type tinygoDev struct {
	bus  drivers.I2C
	addr uint16
}

func (d *tinygoDev) Tx(w, r []byte) error {
	return d.bus.Tx(d.addr, w, r)
}

// acquire takes the bus for one exchange. The returned release must be
// deferred so the bus is freed on every exit path.
func (t *I2CTransport) acquire() (release func()) {
	if t.mu == nil {
		return func() {}
	}
	t.mu.Lock()
	return t.mu.Unlock
}

// ReadBurst implements Transport.
func (t *I2CTransport) ReadBurst(start byte, n int) ([]byte, error) {
	release := t.acquire()
	defer release()

	r := make([]byte, n)
	if err := t.dev.Tx([]byte{start}, r); err != nil {
		return nil, &BusError{Op: "read", Reg: start, Err: err}
	}
	return r, nil
}

// WriteRegister implements Transport.
func (t *I2CTransport) WriteRegister(reg, value byte) error {
	release := t.acquire()
	defer release()

	if err := t.dev.Tx([]byte{reg, value}, nil); err != nil {
		return &BusError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

// ReadRegister reads a single register through t.
func ReadRegister(t Transport, reg byte) (byte, error) {
	b, err := t.ReadBurst(reg, 1)
	if err != nil {
		return 0, err
	}
	if len(b) != 1 {
		return 0, &BusError{Op: "read", Reg: reg, Err: errShortRead}
	}
	return b[0], nil
}
