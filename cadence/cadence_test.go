package cadence

import (
	"testing"

	"github.com/calvinmclean/autoshift/gears"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	table := gears.DefaultTable()

	m, err := Estimate(Sample{WheelIntervalMs: 500, CircumferenceMm: 2110}, table, gears.Position{Front: 1, Rear: 1})
	require.NoError(t, err)

	assert.InDelta(t, 15.19, m.SpeedKmh, 0.01)
	assert.InDelta(t, 120.0, m.WheelRPM, 1e-9)
	assert.InDelta(t, 88.235, m.ExpectedCadence, 0.001)
}

func TestEstimateTopGear(t *testing.T) {
	table := gears.DefaultTable()

	m, err := Estimate(Sample{WheelIntervalMs: 250, CircumferenceMm: 2110}, table, gears.Position{Front: 2, Rear: 10})
	require.NoError(t, err)

	assert.InDelta(t, 30.384, m.SpeedKmh, 0.001)
	assert.InDelta(t, 240.0, m.WheelRPM, 1e-9)
	assert.InDelta(t, 57.6, m.ExpectedCadence, 1e-9)
}

func TestEstimateErrors(t *testing.T) {
	table := gears.DefaultTable()
	pos := table.Lowest()

	tests := []struct {
		name     string
		sample   Sample
		expected error
	}{
		{"ZeroInterval", Sample{WheelIntervalMs: 0, CircumferenceMm: 2110}, ErrInvalidInterval},
		{"NegativeInterval", Sample{WheelIntervalMs: -20, CircumferenceMm: 2110}, ErrInvalidInterval},
		{"ZeroCircumference", Sample{WheelIntervalMs: 500, CircumferenceMm: 0}, ErrUnsupportedWheelSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Estimate(tt.sample, table, pos)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, Measurement{}, m)
		})
	}
}

func TestCrankCadence(t *testing.T) {
	assert.InDelta(t, 60.0, CrankCadence(1000), 1e-9)
	assert.InDelta(t, 120.0, CrankCadence(500), 1e-9)
	assert.Zero(t, CrankCadence(0))
	assert.Zero(t, CrankCadence(-1))
}

func TestWheelSizes(t *testing.T) {
	tests := []struct {
		size     WheelSize
		expected int
	}{
		{WheelSize20, 1530},
		{WheelSize24, 1860},
		{WheelSize26, 1940},
		{WheelSize28, 2110},
	}

	for _, tt := range tests {
		c, err := tt.size.Circumference()
		require.NoError(t, err)
		assert.Equal(t, tt.expected, c)
		assert.True(t, IsSupportedCircumference(c))
	}

	_, err := WheelSize(27).Circumference()
	assert.ErrorIs(t, err, ErrUnsupportedWheelSize)
	assert.False(t, IsSupportedCircumference(2000))
	assert.True(t, IsSupportedCircumference(DefaultCircumferenceMm))
}
