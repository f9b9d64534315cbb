package mpu6050

import (
	"testing"

	"github.com/relabs-tech/forktilt/internal/imu"
)

func TestBE16AllPairs(t *testing.T) {
	buf := make([]byte, 2)
	for hi := 0; hi < 256; hi++ {
		for lo := 0; lo < 256; lo++ {
			got := BE16(byte(hi), byte(lo))
			want := int16(uint16(hi<<8 | lo))
			if got != want {
				t.Fatalf("BE16(0x%02X, 0x%02X) = %d, want %d", hi, lo, got, want)
			}
			PutBE16(buf, got)
			if buf[0] != byte(hi) || buf[1] != byte(lo) {
				t.Fatalf("PutBE16(%d) = % X, want %02X %02X", got, buf, hi, lo)
			}
		}
	}
}

func TestBE16Literals(t *testing.T) {
	cases := []struct {
		hi, lo byte
		want   int16
	}{
		{0x00, 0x00, 0},
		{0x00, 0x01, 1},
		{0x10, 0x00, 4096},
		{0x7F, 0xFF, 32767},
		{0x80, 0x00, -32768},
		{0xFF, 0xFF, -1},
		{0xF0, 0x00, -4096},
	}
	for _, c := range cases {
		if got := BE16(c.hi, c.lo); got != c.want {
			t.Errorf("BE16(0x%02X, 0x%02X) = %d, want %d", c.hi, c.lo, got, c.want)
		}
	}
}

func TestScaleTemperature(t *testing.T) {
	cases := []struct {
		raw  int16
		want int16
	}{
		{0, 3653},
		{340, 3753},
		{-340, 3553},
		{17, 3658},
		{1000, 3947},
		{-1000, 3359},
		{-1, 3653}, // -100/340 truncates to 0
		{-4, 3652}, // -400/340 truncates to -1
		{32767, 13290},
		{-32768, -5984},
	}
	for _, c := range cases {
		if got := ScaleTemperature(c.raw); got != c.want {
			t.Errorf("ScaleTemperature(%d) = %d, want %d", c.raw, got, c.want)
		}
	}
}

func TestBurstRoundTrip(t *testing.T) {
	accel := imu.NewTriple(-4096, 123, 32767)
	gyro := imu.NewTriple(-32768, 0, -1)
	b := EncodeBurst(accel, -3920, gyro)
	if len(b) != BurstLength {
		t.Fatalf("EncodeBurst length %d, want %d", len(b), BurstLength)
	}
	// Byte order is accel X/Y/Z, temperature, gyro X/Y/Z, high byte first.
	if b[0] != 0xF0 || b[1] != 0x00 || b[4] != 0x7F || b[5] != 0xFF || b[8] != 0x80 || b[9] != 0x00 {
		t.Fatalf("unexpected layout: % X", b)
	}
	r := decodeBurst(b)
	if r.Accel != accel || r.Gyro != gyro || r.TempRaw != -3920 {
		t.Errorf("decodeBurst = %+v", r)
	}
	if r.TempCenti != ScaleTemperature(-3920) {
		t.Errorf("TempCenti = %d, want %d", r.TempCenti, ScaleTemperature(-3920))
	}
}
