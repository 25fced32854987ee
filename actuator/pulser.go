package actuator

import (
	"errors"
	"sync"
	"time"

	"github.com/calvinmclean/autoshift"
)

const (
	defaultPressDelay   = 200 * time.Millisecond
	defaultReleaseDelay = 400 * time.Millisecond
)

// Line is a single output that triggers one derailleur movement when it is pulled low. machine.Pin satisfies it
type Line interface {
	Set(bool)
}

// PulseConfig has the timing for a single pulse
type PulseConfig struct {
	// PressDelay is how long the line is held low so the relay (or lever) engages
	PressDelay time.Duration
	// ReleaseDelay is how long the line is held high afterwards so the derailleur finishes moving
	ReleaseDelay time.Duration
}

// DefaultPulseConfig returns the timing used by the relay board
func DefaultPulseConfig() PulseConfig {
	return PulseConfig{
		PressDelay:   defaultPressDelay,
		ReleaseDelay: defaultReleaseDelay,
	}
}

// Lines has one output per Direction
type Lines struct {
	FrontUp   Line
	FrontDown Line
	RearUp    Line
	RearDown  Line
}

func (l Lines) get(d autoshift.Direction) Line {
	switch d {
	case autoshift.DirectionFrontUp:
		return l.FrontUp
	case autoshift.DirectionFrontDown:
		return l.FrontDown
	case autoshift.DirectionRearUp:
		return l.RearUp
	case autoshift.DirectionRearDown:
		return l.RearDown
	default:
		return nil
	}
}

// Pulser drives Lines. Every pulse pulls the line low for PressDelay, then releases it and waits ReleaseDelay.
// Apply holds a lock for the whole sequence so a second Request cannot start while a derailleur is moving.
type Pulser struct {
	lines Lines
	cfg   PulseConfig
	mtx   sync.Mutex

	sleep func(time.Duration)
}

var _ Port = &Pulser{}

// NewPulser releases every line and returns a Pulser. All four lines are required
func NewPulser(lines Lines, cfg PulseConfig) (*Pulser, error) {
	if lines.FrontUp == nil || lines.FrontDown == nil || lines.RearUp == nil || lines.RearDown == nil {
		return nil, errors.New("all four actuation lines are required")
	}

	if cfg.PressDelay == 0 {
		cfg.PressDelay = defaultPressDelay
	}
	if cfg.ReleaseDelay == 0 {
		cfg.ReleaseDelay = defaultReleaseDelay
	}

	p := &Pulser{
		lines: lines,
		cfg:   cfg,
		sleep: time.Sleep,
	}

	for _, l := range []Line{lines.FrontUp, lines.FrontDown, lines.RearUp, lines.RearDown} {
		l.Set(true)
	}

	return p, nil
}

// Apply implements Port.
func (p *Pulser) Apply(req autoshift.Request) {
	line := p.lines.get(req.Direction)
	if line == nil {
		return
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()

	for range req.Pulses {
		line.Set(false)
		p.sleep(p.cfg.PressDelay)
		line.Set(true)
		p.sleep(p.cfg.ReleaseDelay)
	}
}

// Duration is how long Apply blocks for the Request
func (p *Pulser) Duration(req autoshift.Request) time.Duration {
	return time.Duration(req.Pulses) * (p.cfg.PressDelay + p.cfg.ReleaseDelay)
}
