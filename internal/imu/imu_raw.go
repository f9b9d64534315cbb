package imu

import "time"

// Raw is one decoded register burst from the sensor.
type Raw struct {
	Accel Triple `json:"accel"`
	Gyro  Triple `json:"gyro"`

	TempRaw   int16 `json:"temp_raw"`
	TempCenti int16 `json:"temp_centi"` // °C ×100
}

// Reading is the result of one driver update, suitable for JSON and MQTT.
type Reading struct {
	Source string `json:"source"` // "mpu6050" or "sim"

	Accel Triple `json:"accel"` // filtered
	Gyro  Triple `json:"gyro"`

	TempCenti int16   `json:"temp_centi"` // °C ×100, fixed point
	TempC     float64 `json:"temp_c"`

	Angle  float64 `json:"angle_deg"`
	Mode   string  `json:"angle_mode"`
	Filter string  `json:"filter"`

	Time time.Time `json:"time"`
}

// RawSource produces one decoded burst per call.
type RawSource interface {
	ReadRaw() (Raw, error)
}

// RawSourceFunc adapts a function to RawSource.
type RawSourceFunc func() (Raw, error)

// ReadRaw calls f.
func (f RawSourceFunc) ReadRaw() (Raw, error) { return f() }
