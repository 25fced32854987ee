// Package drift detects when the believed gear no longer matches the real gear. When the expected cadence
// disagrees with the measured crank cadence, it checks which neighbouring gear would explain the measurement
// and corrects to it after several consecutive ticks agree.
package drift

import (
	"errors"
	"fmt"
	"math"

	"github.com/calvinmclean/autoshift/cadence"
	"github.com/calvinmclean/autoshift/gears"
)

const (
	defaultGate      = 0.04
	defaultMatch     = 0.02
	defaultConsensus = 3
)

// Config controls how eager the Corrector is
type Config struct {
	// Gate is the relative difference between expected and measured cadence needed before candidates are checked
	Gate float64
	// Match is the relative difference for a candidate gear to explain the measured cadence
	Match float64
	// Consensus is the number of consecutive ticks with the same single match needed to correct
	Consensus int
	// CrossPartner uses the crossover rear sprocket for the other front ring candidate instead of the
	// current one
	CrossPartner bool
}

// DefaultConfig returns 4% gate, 2% match and 3 tick consensus
func DefaultConfig() Config {
	return Config{
		Gate:      defaultGate,
		Match:     defaultMatch,
		Consensus: defaultConsensus,
	}
}

func (c Config) Validate() error {
	if c.Gate <= 0 || c.Gate >= 1 {
		return fmt.Errorf("gate must be between 0 and 1: %v", c.Gate)
	}
	if c.Match <= 0 || c.Match >= 1 {
		return fmt.Errorf("match must be between 0 and 1: %v", c.Match)
	}
	if c.Consensus < 1 {
		return errors.New("consensus must be at least 1")
	}
	return nil
}

// Hypothesis is the gear that explained the measured cadence on the last Matches ticks
type Hypothesis struct {
	Position gears.Position
	Matches  int
}

// Verdict is the outcome of a single Evaluate
type Verdict int

const (
	// VerdictNone means the cadences agree or there is no measurement
	VerdictNone Verdict = iota
	// VerdictNoMatch means the cadences disagree but no candidate explains it
	VerdictNoMatch
	// VerdictAmbiguous means more than one candidate explains it, which counts as no evidence
	VerdictAmbiguous
	// VerdictTracking means one candidate matched but there is no consensus yet
	VerdictTracking
	// VerdictCorrect means consensus was reached and the gear should be corrected
	VerdictCorrect
)

func (v Verdict) String() string {
	switch v {
	case VerdictNoMatch:
		return "NoMatch"
	case VerdictAmbiguous:
		return "Ambiguous"
	case VerdictTracking:
		return "Tracking"
	case VerdictCorrect:
		return "Correct"
	default:
		fallthrough
	case VerdictNone:
		return "None"
	}
}

// Result is returned from Evaluate. Target is only set for VerdictCorrect
type Result struct {
	Verdict    Verdict
	Hypothesis Hypothesis
	Target     gears.Position
}

// Corrector keeps the tracked Hypothesis between ticks. It is not safe for concurrent use
type Corrector struct {
	table   gears.Table
	cfg     Config
	tracked *Hypothesis
}

// New creates a Corrector. Zero values in cfg are replaced by the defaults
func New(table gears.Table, cfg Config) *Corrector {
	if cfg.Gate == 0 {
		cfg.Gate = defaultGate
	}
	if cfg.Match == 0 {
		cfg.Match = defaultMatch
	}
	if cfg.Consensus == 0 {
		cfg.Consensus = defaultConsensus
	}
	return &Corrector{table: table, cfg: cfg}
}

// Gate reports if the expected cadence is far enough from the measured cadence to look for another gear.
// A measured cadence <= 0 is no measurement and never opens the gate
func (c *Corrector) Gate(expected, measured float64) bool {
	if measured <= 0 {
		return false
	}
	return math.Abs(expected-measured)/measured > c.cfg.Gate
}

// Candidates returns the gears the drivetrain could really be in if one shift was missed or doubled:
// one sprocket down, one sprocket up and the other front ring
func (c *Corrector) Candidates(p gears.Position) []gears.Position {
	result := make([]gears.Position, 0, 3)

	for _, candidate := range []gears.Position{
		{Front: p.Front, Rear: p.Rear - 1},
		{Front: p.Front, Rear: p.Rear + 1},
		c.otherRing(p),
	} {
		if c.table.Contains(candidate) {
			result = append(result, candidate)
		}
	}

	return result
}

func (c *Corrector) otherRing(p gears.Position) gears.Position {
	if p.Front == 1 {
		p.Front = 2
		if c.cfg.CrossPartner {
			p.Rear -= c.table.Up.At - c.table.Up.To
		}
		return p
	}

	p.Front = 1
	if c.cfg.CrossPartner {
		p.Rear += c.table.Down.To - c.table.Down.At
	}
	return p
}

// Evaluate runs one tick of drift detection for the believed gear. When the Result is VerdictCorrect the caller
// should move to Target; the tracked Hypothesis is already cleared
func (c *Corrector) Evaluate(p gears.Position, wheelRPM, expected, measured float64) Result {
	if measured <= 0 {
		return Result{Verdict: VerdictNone}
	}
	if !c.Gate(expected, measured) {
		c.Clear()
		return Result{Verdict: VerdictNone}
	}

	var (
		match   gears.Position
		matches int
	)
	for _, candidate := range c.Candidates(p) {
		if c.matches(cadence.CadenceAt(wheelRPM, c.table, candidate), measured) {
			match = candidate
			matches++
		}
	}

	switch {
	case matches == 0:
		c.Clear()
		return Result{Verdict: VerdictNoMatch}
	case matches > 1:
		c.Clear()
		return Result{Verdict: VerdictAmbiguous}
	}

	if c.tracked != nil && c.tracked.Position == match {
		c.tracked.Matches++
	} else {
		c.tracked = &Hypothesis{Position: match, Matches: 1}
	}

	h := *c.tracked
	if h.Matches < c.cfg.Consensus {
		return Result{Verdict: VerdictTracking, Hypothesis: h}
	}

	c.Clear()
	return Result{Verdict: VerdictCorrect, Hypothesis: h, Target: h.Position}
}

// strictly inside the window, a candidate exactly on the edge does not match
func (c *Corrector) matches(implied, measured float64) bool {
	return implied > measured*(1-c.cfg.Match) && implied < measured*(1+c.cfg.Match)
}

// Tracked returns the current Hypothesis, if any
func (c *Corrector) Tracked() (Hypothesis, bool) {
	if c.tracked == nil {
		return Hypothesis{}, false
	}
	return *c.tracked, true
}

// Clear forgets the tracked Hypothesis
func (c *Corrector) Clear() {
	c.tracked = nil
}
