package cadence

import "time"

// DefaultCircumferenceMm is a 28" wheel
const DefaultCircumferenceMm = 2110

// CrankDebounce ignores crank pulses closer together than this. Nobody pedals faster than 120 rpm, so there
// are at most two real pulses per second
const CrankDebounce = 500 * time.Millisecond

// WheelSize is a nominal wheel diameter in inches
type WheelSize int

const (
	WheelSize20 WheelSize = 20
	WheelSize24 WheelSize = 24
	WheelSize26 WheelSize = 26
	WheelSize28 WheelSize = 28
)

// WheelSizes contains all supported wheels
var WheelSizes = []WheelSize{WheelSize20, WheelSize24, WheelSize26, WheelSize28}

// Circumference returns the rolling circumference in mm
func (w WheelSize) Circumference() (int, error) {
	switch w {
	case WheelSize20:
		return 1530, nil
	case WheelSize24:
		return 1860, nil
	case WheelSize26:
		return 1940, nil
	case WheelSize28:
		return 2110, nil
	default:
		return 0, ErrUnsupportedWheelSize
	}
}

// IsSupportedCircumference checks if mm is the circumference of one of the WheelSizes
func IsSupportedCircumference(mm int) bool {
	for _, w := range WheelSizes {
		c, _ := w.Circumference()
		if c == mm {
			return true
		}
	}
	return false
}
