package app

import (
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/forktilt/internal/imu"
)

func TestFormatTempCenti(t *testing.T) {
	cases := []struct {
		centi int16
		want  string
	}{
		{3653, "36.53"},
		{3705, "37.05"},
		{2500, "25.00"},
		{0, "0.00"},
		{-5, "-0.05"},
		{-1234, "-12.34"},
		{-32768, "-327.68"},
	}
	for _, c := range cases {
		if got := FormatTempCenti(c.centi); got != c.want {
			t.Errorf("FormatTempCenti(%d) = %q, want %q", c.centi, got, c.want)
		}
	}
}

func TestFormatAngle(t *testing.T) {
	cases := []struct {
		deg  float64
		want string
	}{
		{0, LevelLabel},
		{0.99, LevelLabel},
		{-0.99, LevelLabel},
		{1, "+1 deg"},
		{12.7, "+12 deg"},
		{-7.2, "-7 deg"},
		{180, "+180 deg"},
	}
	for _, c := range cases {
		if got := FormatAngle(c.deg); got != c.want {
			t.Errorf("FormatAngle(%v) = %q, want %q", c.deg, got, c.want)
		}
	}
}

func TestBarSpan(t *testing.T) {
	cases := []struct {
		deg      float64
		from, to int
	}{
		{0, 64, 64},
		{90, 64, 128},
		{-90, 0, 64},
		{45, 64, 96},
		{-45, 32, 64},
		{200, 64, 128},
		{-180, 0, 64},
	}
	for _, c := range cases {
		from, to := BarSpan(c.deg, 128)
		if from != c.from || to != c.to {
			t.Errorf("BarSpan(%v) = [%d, %d), want [%d, %d)", c.deg, from, to, c.from, c.to)
		}
	}
}

func TestTiltLine(t *testing.T) {
	r := imu.Reading{
		Accel:     imu.NewTriple(1, 2, 3),
		TempCenti: 3753,
		Angle:     -12.5,
		Mode:      "three_axis",
		Filter:    "rolling",
		Time:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	line := TiltLine(r)
	for _, want := range []string{"03:04:05", "-12.50", "-12 deg", "temp=37.53C", "rolling/three_axis"} {
		if !strings.Contains(line, want) {
			t.Errorf("TiltLine missing %q: %s", want, line)
		}
	}
}
