package mpu6050

import (
	"github.com/relabs-tech/forktilt/internal/imu"
)

// BE16 reassembles a big-endian register pair as a two's complement int16.
func BE16(hi, lo byte) int16 {
	return int16(uint16(hi)<<8 | uint16(lo))
}

// PutBE16 is the inverse of BE16.
func PutBE16(b []byte, v int16) {
	b[0] = byte(uint16(v) >> 8)
	b[1] = byte(uint16(v))
}

// ScaleTemperature converts a raw TEMP_OUT value into °C ×100:
//
//	(raw*100)/340 + 3653
//
// The integer division truncates toward zero. The result is what the
// display path prints as "whole.fraction" without floating point.
func ScaleTemperature(raw int16) int16 {
	return int16(int32(raw)*100/340 + 3653)
}

// decodeBurst turns the 14 bytes starting at ACCEL_XOUT_H into a Raw sample.
func decodeBurst(b []byte) imu.Raw {
	r := imu.Raw{
		Accel: imu.Triple{
			X: BE16(b[0], b[1]),
			Y: BE16(b[2], b[3]),
			Z: BE16(b[4], b[5]),
		},
		TempRaw: BE16(b[6], b[7]),
		Gyro: imu.Triple{
			X: BE16(b[8], b[9]),
			Y: BE16(b[10], b[11]),
			Z: BE16(b[12], b[13]),
		},
	}
	r.TempCenti = ScaleTemperature(r.TempRaw)
	return r
}

// EncodeBurst lays out accel, raw temperature and gyro the way the device
// presents them starting at ACCEL_XOUT_H.
func EncodeBurst(accel imu.Triple, tempRaw int16, gyro imu.Triple) []byte {
	b := make([]byte, BurstLength)
	PutBE16(b[0:], accel.X)
	PutBE16(b[2:], accel.Y)
	PutBE16(b[4:], accel.Z)
	PutBE16(b[6:], tempRaw)
	PutBE16(b[8:], gyro.X)
	PutBE16(b[10:], gyro.Y)
	PutBE16(b[12:], gyro.Z)
	return b
}
