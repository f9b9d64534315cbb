// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/forktilt/internal/config"
	"github.com/relabs-tech/forktilt/internal/imu"
	"github.com/relabs-tech/forktilt/internal/sensors/mpu6050"
)

// ErrNotOpen is returned by Manager methods before Open succeeded.
var ErrNotOpen = errors.New("sensors: tilt sensor not open")

// RegisterValue is one register read for the debug tooling.
type RegisterValue struct {
	Address byte   `json:"address"`
	Name    string `json:"name"`
	Value   byte   `json:"value"`
}

// Manager owns the single tilt sensor of the process. The producer loop and
// the register debug handlers go through it so that driver updates and raw
// register access never interleave.
type Manager struct {
	mu     sync.Mutex
	src    *Source
	last   imu.Reading
	raw    imu.Raw
	hasRaw bool

	open func(*config.Config) (*Source, error)
}

var (
	manager     *Manager
	managerOnce sync.Once
)

// GetManager returns the process-wide manager.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = NewManager()
	})
	return manager
}

// NewManager returns a manager that opens sources with OpenSource.
func NewManager() *Manager {
	return &Manager{open: OpenSource}
}

// Open brings the sensor up. It is a no-op when already open.
func (m *Manager) Open(cfg *config.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.src != nil {
		return nil
	}
	src, err := m.open(cfg)
	if err != nil {
		return err
	}
	m.src = src
	return nil
}

// Close halts the device and releases the bus.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.src == nil {
		return nil
	}
	err := m.src.Close()
	m.src = nil
	return err
}

// Update runs one driver cycle. On error the previous reading is returned
// together with the error.
func (m *Manager) Update() (imu.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.src == nil {
		return m.last, ErrNotOpen
	}
	dev := m.src.Dev
	if err := dev.Update(); err != nil {
		return m.last, err
	}
	m.last = dev.Reading()
	m.raw = imu.Raw{
		Accel:     dev.RawAccel(),
		Gyro:      dev.RawGyro(),
		TempRaw:   dev.TempRaw(),
		TempCenti: dev.TempCenti(),
	}
	m.hasRaw = true
	return m.last, nil
}

// Latest returns the last successful reading and whether there was one.
func (m *Manager) Latest() (imu.Reading, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, !m.last.Time.IsZero()
}

// LatestRaw returns the burst behind the last successful reading.
func (m *Manager) LatestRaw() (imu.Raw, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.raw, m.hasRaw
}

// Sim returns the simulated bus, or nil on hardware.
func (m *Manager) Sim() *mpu6050.SimBus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.src == nil {
		return nil
	}
	return m.src.Sim
}

// ReadRegister reads one register.
func (m *Manager) ReadRegister(reg byte) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.src == nil {
		return 0, ErrNotOpen
	}
	return mpu6050.ReadRegister(m.src.transport, reg)
}

// WriteRegister writes one register the register map marks writable.
func (m *Manager) WriteRegister(reg, value byte) error {
	if !mpu6050.Writable(reg) {
		return fmt.Errorf("sensors: register 0x%02X is not writable", reg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.src == nil {
		return ErrNotOpen
	}
	if err := m.src.transport.WriteRegister(reg, value); err != nil {
		return err
	}
	log.Infof("sensors: wrote 0x%02X to register 0x%02X", value, reg)
	return nil
}

// ReadAllRegisters reads every register in the register map.
func (m *Manager) ReadAllRegisters() ([]RegisterValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.src == nil {
		return nil, ErrNotOpen
	}
	regs := mpu6050.RegisterMap()
	out := make([]RegisterValue, 0, len(regs))
	for _, r := range regs {
		v, err := mpu6050.ReadRegister(m.src.transport, r.Address)
		if err != nil {
			return nil, fmt.Errorf("sensors: read %s: %w", r.Name, err)
		}
		out = append(out, RegisterValue{Address: r.Address, Name: r.Name, Value: v})
	}
	return out, nil
}

// ExportConfig returns the writable registers as NAME -> "0xNN".
func (m *Manager) ExportConfig() (map[string]string, error) {
	all, err := m.ReadAllRegisters()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, r := range all {
		if mpu6050.Writable(r.Address) {
			out[r.Name] = fmt.Sprintf("0x%02X", r.Value)
		}
	}
	return out, nil
}

// Reinitialize reruns the driver Init sequence, e.g. after manual register
// writes.
func (m *Manager) Reinitialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.src == nil {
		return ErrNotOpen
	}
	return m.src.Dev.Init()
}
