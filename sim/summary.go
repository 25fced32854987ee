package sim

import (
	"context"
	"fmt"

	"github.com/calvinmclean/autoshift/controller"
	"github.com/calvinmclean/autoshift/gears"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Step is one simulated tick
type Step struct {
	Input  controller.Input
	Output controller.Output
	Err    error
}

// Collector keeps every Step in memory. It implements controller.Sink
type Collector struct {
	Steps []Step
}

var _ controller.Sink = &Collector{}

// Record implements controller.Sink.
func (c *Collector) Record(_ context.Context, in controller.Input, out controller.Output, tickErr error) error {
	c.Steps = append(c.Steps, Step{in, out, tickErr})
	return nil
}

// Summary describes a whole run. Cadence and speed statistics only include ticks without errors
type Summary struct {
	Ticks       int
	Errors      int
	Shifts      int
	Corrections int
	Resets      int
	Pulses      uint

	CadenceMean   float64
	CadenceStdDev float64
	// InBand is the fraction of valid ticks where the expected cadence was inside the target band
	InBand float64

	SpeedMean float64
	SpeedMax  float64

	Final gears.Position
}

// Summarize computes a Summary. Ticks that did not set a target or tolerance use cfg's
func Summarize(steps []Step, cfg controller.Config) Summary {
	s := Summary{Ticks: len(steps)}

	var (
		cadences []float64
		speeds   []float64
		inBand   int
	)
	for _, step := range steps {
		out := step.Output
		s.Final = out.Position

		if out.Shift != controller.ShiftNone {
			s.Shifts++
		}
		if out.Corrected {
			s.Corrections++
		}
		if out.Reset {
			s.Resets++
		}
		for _, r := range out.Requests {
			s.Pulses += r.Pulses
		}

		if step.Err != nil {
			s.Errors++
			continue
		}

		cadences = append(cadences, out.ExpectedCadence)
		speeds = append(speeds, out.SpeedKmh)

		lower, upper := cfg.BandFor(step.Input)
		if out.ExpectedCadence >= lower && out.ExpectedCadence <= upper {
			inBand++
		}
	}

	if len(cadences) == 0 {
		return s
	}

	s.CadenceMean = stat.Mean(cadences, nil)
	// the sample deviation needs two ticks
	if len(cadences) > 1 {
		s.CadenceStdDev = stat.StdDev(cadences, nil)
	}
	s.InBand = float64(inBand) / float64(len(cadences))
	s.SpeedMean = stat.Mean(speeds, nil)
	s.SpeedMax = floats.Max(speeds)

	return s
}

func (s Summary) String() string {
	return fmt.Sprintf(
		"ticks=%d errors=%d shifts=%d corrections=%d resets=%d pulses=%d cadence=%.1f±%.1f in_band=%.0f%% speed=%.1f/%.1f final=%s",
		s.Ticks, s.Errors, s.Shifts, s.Corrections, s.Resets, s.Pulses,
		s.CadenceMean, s.CadenceStdDev, s.InBand*100, s.SpeedMean, s.SpeedMax, s.Final,
	)
}
