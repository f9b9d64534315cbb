package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/forktilt/internal/imu"
)

// LevelLabel replaces the angle when it truncates to zero degrees.
const LevelLabel = "0:level"

// FormatTempCenti renders °C ×100 as "whole.hundredths" using integer
// arithmetic only.
func FormatTempCenti(centi int16) string {
	v := int32(centi)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// FormatAngle renders whole degrees with an explicit sign, or LevelLabel.
func FormatAngle(deg float64) string {
	whole := int(deg)
	if whole == 0 {
		return LevelLabel
	}
	return fmt.Sprintf("%+d deg", whole)
}

// BarSpan maps an angle onto a horizontal bar of the given width centred at
// width/2. ±90° reach the edges; larger angles are clamped.
func BarSpan(deg float64, width int) (from, to int) {
	mid := width / 2
	deg = max(-90, min(90, deg))
	end := mid + int(deg*float64(mid)/90)
	if end < mid {
		return end, mid
	}
	return mid, end
}

// TiltLine is the console rendering of one reading.
func TiltLine(r imu.Reading) string {
	return fmt.Sprintf(
		"[TILT] %s  angle=%7.2f (%s)  accel x=%6d y=%6d z=%6d  gyro x=%6d y=%6d z=%6d  temp=%sC  %s/%s",
		r.Time.Format(time.TimeOnly), r.Angle, FormatAngle(r.Angle),
		r.Accel.X, r.Accel.Y, r.Accel.Z,
		r.Gyro.X, r.Gyro.Y, r.Gyro.Z,
		FormatTempCenti(r.TempCenti), r.Filter, r.Mode,
	)
}

// RawLine is the console rendering of one raw burst.
func RawLine(r imu.Raw) string {
	return fmt.Sprintf(
		"[RAW ] ax=%6d ay=%6d az=%6d  gx=%6d gy=%6d gz=%6d  temp_raw=%6d",
		r.Accel.X, r.Accel.Y, r.Accel.Z,
		r.Gyro.X, r.Gyro.Y, r.Gyro.Z,
		r.TempRaw,
	)
}
