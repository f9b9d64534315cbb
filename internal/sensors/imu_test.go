package sensors

import (
	"errors"
	"testing"

	"github.com/relabs-tech/forktilt/internal/config"
	"github.com/relabs-tech/forktilt/internal/imu"
	"github.com/relabs-tech/forktilt/internal/sensors/mpu6050"
)

func openSim(t *testing.T) *Manager {
	t.Helper()
	cfg := config.Default()
	cfg.UseSim = true
	m := NewManager()
	if err := m.Open(cfg); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManagerNotOpen(t *testing.T) {
	m := NewManager()
	if _, err := m.Update(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Update err = %v", err)
	}
	if _, err := m.ReadRegister(mpu6050.RegWhoAmI); !errors.Is(err, ErrNotOpen) {
		t.Errorf("ReadRegister err = %v", err)
	}
	if _, ok := m.Latest(); ok {
		t.Error("Latest reported a reading before any update")
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close on a closed manager: %v", err)
	}
}

func TestManagerOpenInitialisesDevice(t *testing.T) {
	m := openSim(t)
	sim := m.Sim()
	if sim == nil {
		t.Fatal("no simulated bus")
	}
	want := []mpu6050.RegWrite{
		{Reg: mpu6050.RegPwrMgmt1, Value: mpu6050.ClkSelPLLGyroY},
		{Reg: mpu6050.RegAccelConfig, Value: mpu6050.AccelFS8G},
		{Reg: mpu6050.RegGyroConfig, Value: mpu6050.GyroFS500},
	}
	got := sim.Writes()
	if len(got) != len(want) {
		t.Fatalf("writes = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestManagerUpdate(t *testing.T) {
	m := openSim(t)
	m.Sim().SetFrame(imu.NewTriple(0, 0, 4096), 340, imu.NewTriple(5, 6, 7))

	var r imu.Reading
	for i := 0; i < mpu6050.WindowSize; i++ {
		var err error
		if r, err = m.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if r.Source != "sim" || r.Accel != imu.NewTriple(0, 0, 4096) || r.Angle != 0 || r.TempCenti != 3753 {
		t.Errorf("reading = %+v", r)
	}
	latest, ok := m.Latest()
	if !ok || latest != r {
		t.Errorf("Latest = %+v, %v", latest, ok)
	}
	raw, ok := m.LatestRaw()
	if !ok || raw.Gyro != imu.NewTriple(5, 6, 7) || raw.TempRaw != 340 {
		t.Errorf("LatestRaw = %+v, %v", raw, ok)
	}

	m.Sim().Fail(1, nil)
	got, err := m.Update()
	if !mpu6050.IsBusError(err) {
		t.Fatalf("err = %v", err)
	}
	if got != r {
		t.Errorf("failed update returned %+v, want previous %+v", got, r)
	}
}

func TestManagerRegisters(t *testing.T) {
	m := openSim(t)

	if id, err := m.ReadRegister(mpu6050.RegWhoAmI); err != nil || id != mpu6050.WhoAmIValue {
		t.Errorf("WHO_AM_I = 0x%02X, %v", id, err)
	}
	if err := m.WriteRegister(mpu6050.RegAccelXOutH, 1); err == nil {
		t.Error("write to a read-only register accepted")
	}
	if err := m.WriteRegister(mpu6050.RegSmplrtDiv, 9); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.ReadRegister(mpu6050.RegSmplrtDiv); v != 9 {
		t.Errorf("SMPLRT_DIV = %d", v)
	}

	all, err := m.ReadAllRegisters()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(mpu6050.RegisterMap()) {
		t.Errorf("read %d registers, want %d", len(all), len(mpu6050.RegisterMap()))
	}

	exp, err := m.ExportConfig()
	if err != nil {
		t.Fatal(err)
	}
	if exp["PWR_MGMT_1"] != "0x02" || exp["ACCEL_CONFIG"] != "0x10" || exp["SMPLRT_DIV"] != "0x09" {
		t.Errorf("export = %v", exp)
	}
	if _, ok := exp["WHO_AM_I"]; ok {
		t.Error("read-only register exported")
	}

	if err := m.WriteRegister(mpu6050.RegAccelConfig, 0x18); err != nil {
		t.Fatal(err)
	}
	if err := m.Reinitialize(); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.ReadRegister(mpu6050.RegAccelConfig); v != mpu6050.AccelFS8G {
		t.Errorf("ACCEL_CONFIG after reinit = 0x%02X", v)
	}
}

func TestManagerCloseHaltsDevice(t *testing.T) {
	cfg := config.Default()
	cfg.UseSim = true
	m := NewManager()
	if err := m.Open(cfg); err != nil {
		t.Fatal(err)
	}
	sim := m.Sim()
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if v := sim.Register(mpu6050.RegPwrMgmt1); v&0x40 == 0 {
		t.Errorf("PWR_MGMT_1 = 0x%02X, want sleep bit set", v)
	}
	if m.Sim() != nil {
		t.Error("manager still holds the source")
	}
}
