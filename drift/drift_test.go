package drift

import (
	"testing"

	"github.com/calvinmclean/autoshift/cadence"
	"github.com/calvinmclean/autoshift/gears"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wheelRPM = 120

var believed = gears.Position{Front: 1, Rear: 5}

// measuredIn is the crank cadence measured when the drivetrain is really in p
func measuredIn(p gears.Position) float64 {
	return cadence.CadenceAt(wheelRPM, gears.DefaultTable(), p)
}

func evaluate(c *Corrector, actual gears.Position) Result {
	return c.Evaluate(believed, wheelRPM, measuredIn(believed), measuredIn(actual))
}

func TestGate(t *testing.T) {
	c := New(gears.DefaultTable(), DefaultConfig())

	assert.False(t, c.Gate(60, 60))
	assert.False(t, c.Gate(62, 60))
	assert.True(t, c.Gate(63, 60))
	assert.True(t, c.Gate(57, 60))
	assert.False(t, c.Gate(60, 0))
	assert.False(t, c.Gate(60, -5))
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		pos      gears.Position
		expected []gears.Position
	}{
		{
			"Middle",
			DefaultConfig(),
			gears.Position{Front: 1, Rear: 5},
			[]gears.Position{{Front: 1, Rear: 4}, {Front: 1, Rear: 6}, {Front: 2, Rear: 5}},
		},
		{
			"LowestRear",
			DefaultConfig(),
			gears.Position{Front: 1, Rear: 1},
			[]gears.Position{{Front: 1, Rear: 2}, {Front: 2, Rear: 1}},
		},
		{
			"HighestRear",
			DefaultConfig(),
			gears.Position{Front: 2, Rear: 10},
			[]gears.Position{{Front: 2, Rear: 9}, {Front: 1, Rear: 10}},
		},
		{
			"CrossPartnerUp",
			Config{CrossPartner: true},
			gears.Position{Front: 1, Rear: 8},
			[]gears.Position{{Front: 1, Rear: 7}, {Front: 1, Rear: 9}, {Front: 2, Rear: 4}},
		},
		{
			"CrossPartnerDown",
			Config{CrossPartner: true},
			gears.Position{Front: 2, Rear: 3},
			[]gears.Position{{Front: 2, Rear: 2}, {Front: 2, Rear: 4}, {Front: 1, Rear: 7}},
		},
		{
			"CrossPartnerOutOfBounds",
			Config{CrossPartner: true},
			gears.Position{Front: 1, Rear: 2},
			[]gears.Position{{Front: 1, Rear: 1}, {Front: 1, Rear: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(gears.DefaultTable(), tt.cfg)
			assert.Equal(t, tt.expected, c.Candidates(tt.pos))
		})
	}
}

func TestCorrectsAfterConsensus(t *testing.T) {
	c := New(gears.DefaultTable(), DefaultConfig())
	actual := gears.Position{Front: 1, Rear: 6}

	r := evaluate(c, actual)
	assert.Equal(t, VerdictTracking, r.Verdict)
	assert.Equal(t, Hypothesis{Position: actual, Matches: 1}, r.Hypothesis)

	r = evaluate(c, actual)
	assert.Equal(t, VerdictTracking, r.Verdict)
	assert.Equal(t, 2, r.Hypothesis.Matches)

	r = evaluate(c, actual)
	assert.Equal(t, VerdictCorrect, r.Verdict)
	assert.Equal(t, actual, r.Target)
	assert.Equal(t, 3, r.Hypothesis.Matches)

	_, tracking := c.Tracked()
	assert.False(t, tracking)
}

func TestCorrectsOtherRing(t *testing.T) {
	c := New(gears.DefaultTable(), DefaultConfig())
	actual := gears.Position{Front: 2, Rear: 5}

	var r Result
	for range 3 {
		r = evaluate(c, actual)
	}
	assert.Equal(t, VerdictCorrect, r.Verdict)
	assert.Equal(t, actual, r.Target)
}

func TestChangingHypothesisRestartsCount(t *testing.T) {
	c := New(gears.DefaultTable(), DefaultConfig())
	a := gears.Position{Front: 1, Rear: 6}
	b := gears.Position{Front: 1, Rear: 4}

	for i, actual := range []gears.Position{a, a, b, a} {
		r := evaluate(c, actual)
		assert.Equal(t, VerdictTracking, r.Verdict, "tick %d", i)
		assert.NotEqual(t, VerdictCorrect, r.Verdict, "tick %d", i)
	}

	h, ok := c.Tracked()
	require.True(t, ok)
	assert.Equal(t, Hypothesis{Position: a, Matches: 1}, h)
}

func TestNoMatchClears(t *testing.T) {
	c := New(gears.DefaultTable(), DefaultConfig())
	a := gears.Position{Front: 1, Rear: 6}

	evaluate(c, a)
	evaluate(c, a)

	// far from every candidate
	r := c.Evaluate(believed, wheelRPM, measuredIn(believed), 100)
	assert.Equal(t, VerdictNoMatch, r.Verdict)
	_, ok := c.Tracked()
	assert.False(t, ok)

	r = evaluate(c, a)
	assert.Equal(t, VerdictTracking, r.Verdict)
	assert.Equal(t, 1, r.Hypothesis.Matches)
}

func TestAmbiguousClears(t *testing.T) {
	// wide match window so that 1/6 (56.5 rpm) and 2/5 (40.8 rpm) both explain 50 rpm
	c := New(gears.DefaultTable(), Config{Match: 0.2})

	c.tracked = &Hypothesis{Position: gears.Position{Front: 1, Rear: 6}, Matches: 2}

	r := c.Evaluate(believed, wheelRPM, measuredIn(believed), 50)
	assert.Equal(t, VerdictAmbiguous, r.Verdict)
	assert.Equal(t, "Ambiguous", r.Verdict.String())

	_, ok := c.Tracked()
	assert.False(t, ok)
}

func TestInBandClears(t *testing.T) {
	c := New(gears.DefaultTable(), DefaultConfig())
	a := gears.Position{Front: 1, Rear: 6}

	evaluate(c, a)
	evaluate(c, a)

	r := evaluate(c, believed)
	assert.Equal(t, VerdictNone, r.Verdict)
	_, ok := c.Tracked()
	assert.False(t, ok)

	r = evaluate(c, a)
	assert.Equal(t, 1, r.Hypothesis.Matches)
}

func TestMissingMeasurementKeepsHypothesis(t *testing.T) {
	c := New(gears.DefaultTable(), DefaultConfig())
	a := gears.Position{Front: 1, Rear: 6}

	evaluate(c, a)
	evaluate(c, a)

	r := c.Evaluate(believed, wheelRPM, measuredIn(believed), 0)
	assert.Equal(t, VerdictNone, r.Verdict)

	h, ok := c.Tracked()
	require.True(t, ok)
	assert.Equal(t, 2, h.Matches)

	r = evaluate(c, a)
	assert.Equal(t, VerdictCorrect, r.Verdict)
}

func TestMatchWindow(t *testing.T) {
	c := New(gears.DefaultTable(), DefaultConfig())

	assert.True(t, c.matches(100, 100))
	assert.True(t, c.matches(101.9, 100))
	assert.False(t, c.matches(102.1, 100))
	assert.False(t, c.matches(97.9, 100))
	assert.True(t, c.matches(98.1, 100))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Gate: 0, Match: 0.02, Consensus: 3}.Validate())
	assert.Error(t, Config{Gate: 0.04, Match: 1.5, Consensus: 3}.Validate())
	assert.Error(t, Config{Gate: 0.04, Match: 0.02, Consensus: 0}.Validate())
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "None", VerdictNone.String())
	assert.Equal(t, "NoMatch", VerdictNoMatch.String())
	assert.Equal(t, "Tracking", VerdictTracking.String())
	assert.Equal(t, "Correct", VerdictCorrect.String())
	assert.Equal(t, "None", Verdict(42).String())
}
