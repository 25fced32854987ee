// Package controller runs the control cycle. Each tick estimates cadence from the wheel timing, shifts when
// it leaves the target band, corrects drift between the believed and real gear, and handles reset requests.
package controller

import (
	"fmt"

	"github.com/calvinmclean/autoshift"
	"github.com/calvinmclean/autoshift/actuator"
	"github.com/calvinmclean/autoshift/cadence"
	"github.com/calvinmclean/autoshift/drift"
	"github.com/calvinmclean/autoshift/gears"
	"github.com/calvinmclean/autoshift/shifter"
)

// Input is everything read from the sensors and the rider for one tick. A nil TargetCadence or
// TolerancePercent uses the configured value. CircumferenceMm or WheelSizeInch changes the wheel for this and
// all following ticks
type Input struct {
	WheelIntervalMs int64
	CircumferenceMm int
	WheelSizeInch   int

	TargetCadence    *float64
	TolerancePercent *float64

	// MeasuredCadence is from the crank sensor. 0 means there is no measurement
	MeasuredCadence float64

	Reset bool
}

// Shift is the coarse decision made in a tick
type Shift int

const (
	ShiftNone Shift = iota
	ShiftUp
	ShiftDown
)

func (s Shift) String() string {
	switch s {
	case ShiftUp:
		return "Up"
	case ShiftDown:
		return "Down"
	default:
		fallthrough
	case ShiftNone:
		return "None"
	}
}

// Output is the result of one tick
type Output struct {
	Tick int

	// Previous is the believed gear before the tick
	Previous gears.Position
	// Position is the believed gear after the tick
	Position gears.Position

	SpeedKmh        float64
	WheelRPM        float64
	ExpectedCadence float64
	MeasuredCadence float64

	Shift Shift
	// Shifted is the gear after the coarse decision and before drift correction
	Shifted gears.Position

	Verdict    drift.Verdict
	Hypothesis drift.Hypothesis
	Corrected  bool

	Reset bool

	// Requests has every actuation performed during the tick, in order
	Requests []autoshift.Request
	Warnings []error
}

// Controller owns the Shifter and drift Corrector. It is driven by a single goroutine calling Tick
type Controller struct {
	cfg      Config
	shifter  *shifter.Shifter
	drift    *drift.Corrector
	recorder *actuator.Recorder

	circumference int
	ticks         int
}

// New creates a Controller that actuates through port. A nil port discards requests, which is useful for
// simulations that only look at Output.Requests
func New(cfg Config, port actuator.Port) (*Controller, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if port == nil {
		port = actuator.Discard
	}

	recorder := &actuator.Recorder{}
	return &Controller{
		cfg:           cfg,
		shifter:       shifter.New(cfg.Table, actuator.Tee(recorder, port)),
		drift:         drift.New(cfg.Table, cfg.Drift),
		recorder:      recorder,
		circumference: cfg.CircumferenceMm,
	}, nil
}

// Position returns the believed gear
func (c *Controller) Position() gears.Position {
	return c.shifter.Position()
}

// Circumference returns the wheel circumference in use
func (c *Controller) Circumference() int {
	return c.circumference
}

// Band returns the cadence range where no shift is needed
func Band(target, tolerancePercent float64) (float64, float64) {
	div := target / 100 * tolerancePercent
	return target - div, target + div
}

// Float is used to set the optional Input fields
func Float(v float64) *float64 {
	return &v
}

// BandFor returns the band used for a tick, applying the Input's target and tolerance when they are set. A
// tolerance of 0 is a valid band that shifts on any deviation
func (c Config) BandFor(in Input) (float64, float64) {
	target := c.TargetCadence
	if in.TargetCadence != nil {
		target = *in.TargetCadence
	}
	tolerance := c.TolerancePercent
	if in.TolerancePercent != nil {
		tolerance = *in.TolerancePercent
	}
	return Band(target, tolerance)
}

// Tick runs one control cycle. An error means no shift decision was made, but the Output is still valid and
// a requested reset was still performed
func (c *Controller) Tick(in Input) (Output, error) {
	c.ticks++
	c.recorder.Reset()

	out := Output{
		Tick:            c.ticks,
		Previous:        c.shifter.Position(),
		MeasuredCadence: in.MeasuredCadence,
		Warnings:        c.selectWheel(in),
	}

	err := c.decide(in, &out)

	if in.Reset {
		c.shifter.Reset()
		c.drift.Clear()
		out.Reset = true
	}

	out.Position = c.shifter.Position()
	out.Requests = c.recorder.Requests()

	return out, err
}

func (c *Controller) decide(in Input, out *Output) error {
	m, err := cadence.Estimate(cadence.Sample{
		WheelIntervalMs: in.WheelIntervalMs,
		CircumferenceMm: c.circumference,
	}, c.cfg.Table, c.shifter.Position())
	if err != nil {
		out.Shifted = c.shifter.Position()
		return fmt.Errorf("error estimating cadence: %w", err)
	}

	out.SpeedKmh = m.SpeedKmh
	out.WheelRPM = m.WheelRPM
	out.ExpectedCadence = m.ExpectedCadence

	lower, upper := c.cfg.BandFor(in)

	switch {
	case m.ExpectedCadence < lower:
		if c.shifter.ShiftDown() {
			out.Shift = ShiftDown
		}
	case m.ExpectedCadence > upper:
		if c.shifter.ShiftUp() {
			out.Shift = ShiftUp
		}
	}
	out.Shifted = c.shifter.Position()

	result := c.drift.Evaluate(out.Shifted, m.WheelRPM, m.ExpectedCadence, in.MeasuredCadence)
	out.Verdict = result.Verdict
	out.Hypothesis = result.Hypothesis
	if result.Verdict == drift.VerdictCorrect {
		out.Corrected = c.shifter.MoveTo(result.Target)
	}

	return nil
}

// selectWheel changes the circumference if the Input asks for a supported wheel. Unsupported wheels keep the
// previous one and return a warning
func (c *Controller) selectWheel(in Input) []error {
	var warnings []error

	if in.WheelSizeInch != 0 {
		mm, err := cadence.WheelSize(in.WheelSizeInch).Circumference()
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%w: %d inch, keeping %dmm", err, in.WheelSizeInch, c.circumference))
		} else {
			c.circumference = mm
		}
	}

	if in.CircumferenceMm != 0 {
		if cadence.IsSupportedCircumference(in.CircumferenceMm) {
			c.circumference = in.CircumferenceMm
		} else {
			warnings = append(warnings, fmt.Errorf("%w: %dmm, keeping %dmm", cadence.ErrUnsupportedWheelSize, in.CircumferenceMm, c.circumference))
		}
	}

	return warnings
}
