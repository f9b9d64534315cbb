package orientation

import (
	"math"
	"testing"

	"github.com/relabs-tech/forktilt/internal/imu"
)

const tolerance = 1e-9

func TestTiltTwoAxis(t *testing.T) {
	cases := []struct {
		name string
		a    imu.Triple
		want float64
	}{
		{"level", imu.NewTriple(0, 0, 4096), 0},
		{"x up, z zero", imu.NewTriple(4096, 0, 0), -90},
		{"x down, z zero", imu.NewTriple(-4096, 0, 0), 90},
		{"upside down", imu.NewTriple(0, 0, -4096), 180},
		{"45 degrees", imu.NewTriple(-1000, 0, 1000), 45},
	}
	for _, c := range cases {
		if got := Tilt(TwoAxis, c.a); math.Abs(got-c.want) > tolerance {
			t.Errorf("%s: Tilt(TwoAxis, %+v) = %v, want %v", c.name, c.a, got, c.want)
		}
	}
}

func TestTiltTwoAxisUpsideDownIsPositive(t *testing.T) {
	for _, ax := range []float64{0, math.Copysign(0, -1)} {
		got := TiltTwoAxis(ax, -4096)
		if got != 180 {
			t.Errorf("TiltTwoAxis(%v, -4096) = %v, want 180", ax, got)
		}
	}
	if got := Tilt(TwoAxis, imu.NewTriple(0, 0, -1)); got != 180 || math.Signbit(got) {
		t.Errorf("Tilt(TwoAxis, upside down) = %v, want +180", got)
	}
	// Just past upside down on either side stays inside (-180, 180].
	if got := Tilt(TwoAxis, imu.NewTriple(1, 0, -4096)); got <= -180 || got >= -179 {
		t.Errorf("x slightly up, upside down: %v", got)
	}
	if got := Tilt(TwoAxis, imu.NewTriple(-1, 0, -4096)); got >= 180 || got <= 179 {
		t.Errorf("x slightly down, upside down: %v", got)
	}
}

func TestTiltThreeAxis(t *testing.T) {
	cases := []struct {
		name string
		a    imu.Triple
		want float64
	}{
		{"z positive", imu.NewTriple(0, 0, 4096), 0},
		{"z negative", imu.NewTriple(0, 0, -4096), 0},
		{"y up", imu.NewTriple(0, 4096, 0), 90},
		{"y down", imu.NewTriple(0, -4096, 0), -90},
		{"roll invariant", imu.NewTriple(3000, 0, -2000), 0},
		{"45 degrees", imu.NewTriple(0, 1000, 1000), 45},
	}
	for _, c := range cases {
		if got := Tilt(ThreeAxis, c.a); math.Abs(got-c.want) > tolerance {
			t.Errorf("%s: Tilt(ThreeAxis, %+v) = %v, want %v", c.name, c.a, got, c.want)
		}
	}
}

func TestParseAngleMode(t *testing.T) {
	for _, m := range []AngleMode{ThreeAxis, TwoAxis} {
		got, err := ParseAngleMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseAngleMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseAngleMode("quaternion"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
