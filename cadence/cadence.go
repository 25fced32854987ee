// Package cadence turns wheel and crank sensor timing into road speed and pedaling cadence
package cadence

import (
	"errors"

	"github.com/calvinmclean/autoshift/gears"
)

var (
	// ErrInvalidInterval is returned for a non-positive wheel interval. There is no speed to compute,
	// so no shift decision can be made from the sample
	ErrInvalidInterval = errors.New("invalid wheel interval")
	// ErrUnsupportedWheelSize is returned for a wheel that is not one of the known sizes
	ErrUnsupportedWheelSize = errors.New("unsupported wheel size")
)

const (
	msPerMinute = 60000
	// mm/ms to km/h
	kmhPerMmPerMs = 3.6
)

// Sample is the wheel timing from one tick
type Sample struct {
	// WheelIntervalMs is the time between the two most recent wheel sensor pulses
	WheelIntervalMs int64
	CircumferenceMm int
}

// Measurement is derived from a Sample and the current gear
type Measurement struct {
	SpeedKmh float64
	WheelRPM float64
	// ExpectedCadence is the crank rpm implied by the wheel rpm and the believed gear
	ExpectedCadence float64
}

// Estimate computes speed, wheel rpm and the expected cadence for the believed gear
func Estimate(s Sample, t gears.Table, p gears.Position) (Measurement, error) {
	if s.WheelIntervalMs <= 0 {
		return Measurement{}, ErrInvalidInterval
	}
	if s.CircumferenceMm <= 0 {
		return Measurement{}, ErrUnsupportedWheelSize
	}

	interval := float64(s.WheelIntervalMs)
	wheelRPM := msPerMinute / interval

	return Measurement{
		SpeedKmh:        float64(s.CircumferenceMm) / interval * kmhPerMmPerMs,
		WheelRPM:        wheelRPM,
		ExpectedCadence: CadenceAt(wheelRPM, t, p),
	}, nil
}

// CadenceAt is the crank rpm needed to turn the wheel at wheelRPM in the given gear
func CadenceAt(wheelRPM float64, t gears.Table, p gears.Position) float64 {
	return wheelRPM / t.Ratio(p)
}

// CrankCadence converts the time between two crank sensor pulses to rpm. It returns 0, meaning no measurement,
// for a non-positive interval
func CrankCadence(intervalMs int64) float64 {
	if intervalMs <= 0 {
		return 0
	}
	return msPerMinute / float64(intervalMs)
}
