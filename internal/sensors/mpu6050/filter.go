package mpu6050

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/relabs-tech/forktilt/internal/imu"
)

// Filter constants, fixed at build time.
const (
	WindowSize = 7 // rolling window per accelerometer axis

	trimLowPercent  = 15
	trimHighPercent = 85

	BlockReadings = 200
	BlockDelay    = 2 * time.Millisecond
)

// ErrInvalidWindow is returned when a window size leaves nothing between the
// trim bounds.
var ErrInvalidWindow = errors.New("mpu6050: invalid filter window")

// FilterPolicy selects how raw accelerometer readings are smoothed.
// The two policies give different numbers and are never combined.
type FilterPolicy int

const (
	// FilterRolling keeps a WindowSize circular buffer per accel axis and
	// returns the trimmed mean after every reading. One burst per Update.
	FilterRolling FilterPolicy = iota

	// FilterBlock sums BlockReadings bursts, BlockDelay apart, and returns
	// their mean. Update blocks for roughly BlockReadings*BlockDelay.
	FilterBlock
)

func (p FilterPolicy) String() string {
	switch p {
	case FilterRolling:
		return "rolling"
	case FilterBlock:
		return "block"
	default:
		return fmt.Sprintf("FilterPolicy(%d)", int(p))
	}
}

// ParseFilterPolicy accepts "rolling" or "block".
func ParseFilterPolicy(s string) (FilterPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rolling":
		return FilterRolling, nil
	case "block":
		return FilterBlock, nil
	}
	return 0, fmt.Errorf("unknown filter policy %q (want rolling or block)", s)
}

// TrimBounds returns the half-open index range [low, high) of a sorted
// window of size n that survives the 15%/85% trim:
//
//	low  = max(n*15/100, 1)
//	high = min(n*85/100+1, n-1)
//
// This always drops at least one sample at each end; it is not a true
// percentile.
func TrimBounds(n int) (low, high int) {
	low = max(n*trimLowPercent/100, 1)
	high = min(n*trimHighPercent/100+1, n-1)
	return low, high
}

// RollingWindow is a fixed-size circular buffer of raw readings for one axis
// with a trimmed-mean output. The cursor persists between calls.
type RollingWindow struct {
	buf     []int16
	scratch []int16
	cursor  int
	low     int
	high    int
}

// NewRollingWindow returns a zero-filled window of size n.
func NewRollingWindow(n int) (*RollingWindow, error) {
	low, high := TrimBounds(n)
	if n < 1 || high <= low {
		return nil, fmt.Errorf("%w: size %d trims to [%d, %d)", ErrInvalidWindow, n, low, high)
	}
	return &RollingWindow{
		buf:     make([]int16, n),
		scratch: make([]int16, n),
		low:     low,
		high:    high,
	}, nil
}

// Push overwrites the oldest entry with v and advances the cursor.
func (w *RollingWindow) Push(v int16) {
	w.buf[w.cursor] = v
	w.cursor = (w.cursor + 1) % len(w.buf)
}

// Mean sorts a copy of the buffer and averages the entries between the trim
// bounds, truncating toward zero.
func (w *RollingWindow) Mean() int16 {
	copy(w.scratch, w.buf)
	slices.Sort(w.scratch)

	var total int32
	for _, v := range w.scratch[w.low:w.high] {
		total += int32(v)
	}
	return int16(total / int32(w.high-w.low))
}

// Filter pushes v and returns the new trimmed mean.
func (w *RollingWindow) Filter(v int16) int16 {
	w.Push(v)
	return w.Mean()
}

// Len is the window size.
func (w *RollingWindow) Len() int { return len(w.buf) }

// Cursor is the index the next Push writes to.
func (w *RollingWindow) Cursor() int { return w.cursor }

// Values returns a copy of the buffer in storage order.
func (w *RollingWindow) Values() []int16 {
	return slices.Clone(w.buf)
}

// axisWindows holds one rolling window per accelerometer axis.
type axisWindows struct {
	x, y, z *RollingWindow
}

func newAxisWindows(n int) (*axisWindows, error) {
	x, err := NewRollingWindow(n)
	if err != nil {
		return nil, err
	}
	y, _ := NewRollingWindow(n)
	z, _ := NewRollingWindow(n)
	return &axisWindows{x: x, y: y, z: z}, nil
}

func (a *axisWindows) filter(t imu.Triple) imu.Triple {
	return imu.Triple{
		X: a.x.Filter(t.X),
		Y: a.y.Filter(t.Y),
		Z: a.z.Filter(t.Z),
	}
}

// blockAverage reads n bursts from src, sleeping delay between them, and
// returns the accel and gyro means plus the last burst. Nothing is returned
// if any read fails.
func blockAverage(n int, delay time.Duration, sleep func(time.Duration), src imu.RawSource) (accel, gyro imu.Triple, last imu.Raw, err error) {
	var sumA, sumG imu.Sum
	for i := 0; i < n; i++ {
		if i > 0 {
			sleep(delay)
		}
		last, err = src.ReadRaw()
		if err != nil {
			return imu.Triple{}, imu.Triple{}, imu.Raw{}, err
		}
		sumA.Add(last.Accel)
		sumG.Add(last.Gyro)
	}
	return sumA.Mean(), sumG.Mean(), last, nil
}
