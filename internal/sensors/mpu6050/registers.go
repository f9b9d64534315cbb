// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mpu6050

// Address is the fixed 7-bit I2C address (AD0 low).
const Address uint16 = 0x68

// Registers used by the driver.
const (
	RegSmplrtDiv   byte = 0x19
	RegConfig      byte = 0x1A
	RegGyroConfig  byte = 0x1B
	RegAccelConfig byte = 0x1C
	RegAccelXOutH  byte = 0x3B // start of the 14 byte data burst
	RegTempOutH    byte = 0x41
	RegGyroXOutH   byte = 0x43
	RegUserCtrl    byte = 0x6A
	RegPwrMgmt1    byte = 0x6B
	RegPwrMgmt2    byte = 0x6C
	RegWhoAmI      byte = 0x75

	// BurstLength covers accel X/Y/Z, temperature and gyro X/Y/Z, two bytes each.
	BurstLength = 14
)

// Values written by Init.
const (
	ClkSelPLLGyroY byte = 0x02 // SLEEP=0, CLKSEL=2
	AccelFS8G      byte = 0x10 // AFS_SEL=2, ±8g
	GyroFS500      byte = 0x08 // FS_SEL=1, ±500°/s

	WhoAmIValue byte = 0x68
)

// RegisterInfo describes one register for the register debug tooling.
type RegisterInfo struct {
	Address     byte       `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	Default     string     `json:"default,omitempty"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// BitField describes a bit range inside a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterMap returns metadata for the MPU-6050 registers the tooling exposes.
func RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		{Address: RegSmplrtDiv, Name: "SMPLRT_DIV", Description: "Sample Rate Divider", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7:0", Name: "SMPLRT_DIV", Description: "Sample Rate = Gyro_Output_Rate / (1 + SMPLRT_DIV)", Values: "0-255"},
			}},
		{Address: RegConfig, Name: "CONFIG", Description: "Configuration (DLPF)", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "5:3", Name: "EXT_SYNC_SET", Description: "External FSYNC pin sampling", Values: "0=Disabled"},
				{Bits: "2:0", Name: "DLPF_CFG", Description: "Digital Low Pass Filter", Values: "0=260Hz, 1=184Hz, 2=94Hz, 3=44Hz, 4=21Hz, 5=10Hz, 6=5Hz"},
			}},
		{Address: RegGyroConfig, Name: "GYRO_CONFIG", Description: "Gyroscope Configuration", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7", Name: "XG_ST", Description: "X Gyro self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "6", Name: "YG_ST", Description: "Y Gyro self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "5", Name: "ZG_ST", Description: "Z Gyro self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "4:3", Name: "FS_SEL", Description: "Gyro Full Scale Range", Values: "0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s"},
			}},
		{Address: RegAccelConfig, Name: "ACCEL_CONFIG", Description: "Accelerometer Configuration", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7", Name: "XA_ST", Description: "X Accel self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "6", Name: "YA_ST", Description: "Y Accel self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "5", Name: "ZA_ST", Description: "Z Accel self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "4:3", Name: "AFS_SEL", Description: "Accel Full Scale Range", Values: "0=±2g, 1=±4g, 2=±8g, 3=±16g"},
			}},

		{Address: 0x3B, Name: "ACCEL_XOUT_H", Description: "Accelerometer X-Axis High Byte", Access: "R"},
		{Address: 0x3C, Name: "ACCEL_XOUT_L", Description: "Accelerometer X-Axis Low Byte", Access: "R"},
		{Address: 0x3D, Name: "ACCEL_YOUT_H", Description: "Accelerometer Y-Axis High Byte", Access: "R"},
		{Address: 0x3E, Name: "ACCEL_YOUT_L", Description: "Accelerometer Y-Axis Low Byte", Access: "R"},
		{Address: 0x3F, Name: "ACCEL_ZOUT_H", Description: "Accelerometer Z-Axis High Byte", Access: "R"},
		{Address: 0x40, Name: "ACCEL_ZOUT_L", Description: "Accelerometer Z-Axis Low Byte", Access: "R"},
		{Address: 0x41, Name: "TEMP_OUT_H", Description: "Temperature High Byte", Access: "R"},
		{Address: 0x42, Name: "TEMP_OUT_L", Description: "Temperature Low Byte", Access: "R"},
		{Address: 0x43, Name: "GYRO_XOUT_H", Description: "Gyroscope X-Axis High Byte", Access: "R"},
		{Address: 0x44, Name: "GYRO_XOUT_L", Description: "Gyroscope X-Axis Low Byte", Access: "R"},
		{Address: 0x45, Name: "GYRO_YOUT_H", Description: "Gyroscope Y-Axis High Byte", Access: "R"},
		{Address: 0x46, Name: "GYRO_YOUT_L", Description: "Gyroscope Y-Axis Low Byte", Access: "R"},
		{Address: 0x47, Name: "GYRO_ZOUT_H", Description: "Gyroscope Z-Axis High Byte", Access: "R"},
		{Address: 0x48, Name: "GYRO_ZOUT_L", Description: "Gyroscope Z-Axis Low Byte", Access: "R"},

		{Address: RegUserCtrl, Name: "USER_CTRL", Description: "User Control", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "6", Name: "FIFO_EN", Description: "Enable FIFO", Values: "0=Disabled, 1=Enabled"},
				{Bits: "5", Name: "I2C_MST_EN", Description: "Enable I2C Master", Values: "0=Disabled, 1=Enabled"},
				{Bits: "2", Name: "FIFO_RESET", Description: "Reset FIFO", Values: "1=Reset"},
				{Bits: "0", Name: "SIG_COND_RESET", Description: "Reset signal paths", Values: "1=Reset"},
			}},
		{Address: RegPwrMgmt1, Name: "PWR_MGMT_1", Description: "Power Management 1", Access: "RW", Default: "0x40",
			BitFields: []BitField{
				{Bits: "7", Name: "DEVICE_RESET", Description: "Device reset", Values: "1=Reset device"},
				{Bits: "6", Name: "SLEEP", Description: "Sleep mode", Values: "0=Disabled, 1=Sleep"},
				{Bits: "5", Name: "CYCLE", Description: "Cycle mode", Values: "0=Disabled, 1=Cycle"},
				{Bits: "3", Name: "TEMP_DIS", Description: "Temperature sensor", Values: "0=Enabled, 1=Disabled"},
				{Bits: "2:0", Name: "CLKSEL", Description: "Clock source", Values: "0=Internal 8MHz, 1=PLL gyro X, 2=PLL gyro Y, 3=PLL gyro Z"},
			}},
		{Address: RegPwrMgmt2, Name: "PWR_MGMT_2", Description: "Power Management 2", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7:6", Name: "LP_WAKE_CTRL", Description: "Wake-up frequency in accel-only low power mode", Values: "0=1.25Hz, 1=5Hz, 2=20Hz, 3=40Hz"},
				{Bits: "5", Name: "STBY_XA", Description: "X accelerometer standby", Values: "0=Enabled, 1=Standby"},
				{Bits: "4", Name: "STBY_YA", Description: "Y accelerometer standby", Values: "0=Enabled, 1=Standby"},
				{Bits: "3", Name: "STBY_ZA", Description: "Z accelerometer standby", Values: "0=Enabled, 1=Standby"},
				{Bits: "2", Name: "STBY_XG", Description: "X gyro standby", Values: "0=Enabled, 1=Standby"},
				{Bits: "1", Name: "STBY_YG", Description: "Y gyro standby", Values: "0=Enabled, 1=Standby"},
				{Bits: "0", Name: "STBY_ZG", Description: "Z gyro standby", Values: "0=Enabled, 1=Standby"},
			}},

		{Address: RegWhoAmI, Name: "WHO_AM_I", Description: "Device ID (should be 0x68)", Access: "R", Default: "0x68"},
	}
}

// Writable reports whether the register map marks reg as writable.
func Writable(reg byte) bool {
	for _, r := range RegisterMap() {
		if r.Address == reg {
			return r.Access == "RW" || r.Access == "W"
		}
	}
	return false
}
