package orientation

import (
	"fmt"
	"math"
	"strings"

	"github.com/relabs-tech/forktilt/internal/imu"
)

// AngleMode selects which plane the tilt angle is measured in.
type AngleMode int

const (
	// ThreeAxis measures the elevation of +Y above the X/Z plane:
	//
	//	angle = atan2(ay, sqrt(ax² + az²))
	//
	// It is invariant to roll about Y and only degenerates when ax and az
	// are both zero.
	ThreeAxis AngleMode = iota

	// TwoAxis measures roll about Y with +Z up:
	//
	//	angle = atan2(-ax, az)
	//
	// Tilting +X upwards gives a positive angle. Degenerates when az == 0.
	TwoAxis
)

const radToDeg = 180.0 / math.Pi

func (m AngleMode) String() string {
	switch m {
	case ThreeAxis:
		return "three_axis"
	case TwoAxis:
		return "two_axis"
	default:
		return fmt.Sprintf("AngleMode(%d)", int(m))
	}
}

// ParseAngleMode accepts "three_axis" or "two_axis".
func ParseAngleMode(s string) (AngleMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "three_axis", "3":
		return ThreeAxis, nil
	case "two_axis", "2":
		return TwoAxis, nil
	}
	return 0, fmt.Errorf("unknown angle mode %q (want three_axis or two_axis)", s)
}

// TiltTwoAxis returns atan2(-ax, az) in degrees, in (-180, 180].
// Upside down (ax == 0, az < 0) is +180.
func TiltTwoAxis(ax, az float64) float64 {
	y := -ax
	if y == 0 {
		y = 0 // -ax of +0 is -0, and atan2(-0, az<0) would give -180
	}
	return math.Atan2(y, az) * radToDeg
}

// TiltThreeAxis returns atan2(ay, sqrt(ax²+az²)) in degrees.
func TiltThreeAxis(ax, ay, az float64) float64 {
	return math.Atan2(ay, math.Sqrt(ax*ax+az*az)) * radToDeg
}

// Tilt computes the tilt angle in degrees from integer accelerometer counts.
// Only ratios matter, so no unit conversion is applied; the integer
// pipeline is converted to float64 here and nowhere else.
func Tilt(mode AngleMode, a imu.Triple) float64 {
	x, y, z := float64(a.X), float64(a.Y), float64(a.Z)
	if mode == TwoAxis {
		return TiltTwoAxis(x, z)
	}
	return TiltThreeAxis(x, y, z)
}
