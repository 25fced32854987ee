package shifter

import (
	"testing"

	"github.com/calvinmclean/autoshift"
	"github.com/calvinmclean/autoshift/actuator"
	"github.com/calvinmclean/autoshift/gears"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShifter(t *testing.T, start gears.Position) (*Shifter, *actuator.Recorder) {
	t.Helper()

	rec := &actuator.Recorder{}
	s := New(gears.DefaultTable(), rec)
	if start != s.Position() {
		require.True(t, s.MoveTo(start))
		rec.Reset()
	}
	require.Equal(t, start, s.Position())

	return s, rec
}

func allPositions() []gears.Position {
	table := gears.DefaultTable()
	result := []gears.Position{}
	for f := 1; f <= len(table.Front); f++ {
		for r := 1; r <= len(table.Rear); r++ {
			result = append(result, gears.Position{Front: f, Rear: r})
		}
	}
	return result
}

func req(d autoshift.Direction, n uint) autoshift.Request {
	return autoshift.Request{Direction: d, Pulses: n}
}

func TestNewStartsLowest(t *testing.T) {
	rec := &actuator.Recorder{}
	s := New(gears.DefaultTable(), rec)

	assert.Equal(t, gears.Position{Front: 1, Rear: 1}, s.Position())
	assert.Empty(t, rec.Requests())
}

func TestShiftUp(t *testing.T) {
	tests := []struct {
		name          string
		start         gears.Position
		expectedPos   gears.Position
		expectedMoved bool
		expectedReqs  []autoshift.Request
	}{
		{
			"SmallRingRear",
			gears.Position{Front: 1, Rear: 1},
			gears.Position{Front: 1, Rear: 2},
			true,
			[]autoshift.Request{req(autoshift.DirectionRearUp, 1)},
		},
		{
			"BeforeCrossover",
			gears.Position{Front: 1, Rear: 7},
			gears.Position{Front: 1, Rear: 8},
			true,
			[]autoshift.Request{req(autoshift.DirectionRearUp, 1)},
		},
		{
			"Crossover",
			gears.Position{Front: 1, Rear: 8},
			gears.Position{Front: 2, Rear: 4},
			true,
			[]autoshift.Request{req(autoshift.DirectionFrontUp, 1), req(autoshift.DirectionRearDown, 4)},
		},
		{
			"CrossoverFromBeyond",
			gears.Position{Front: 1, Rear: 10},
			gears.Position{Front: 2, Rear: 4},
			true,
			[]autoshift.Request{req(autoshift.DirectionFrontUp, 1), req(autoshift.DirectionRearDown, 6)},
		},
		{
			"BigRingRear",
			gears.Position{Front: 2, Rear: 4},
			gears.Position{Front: 2, Rear: 5},
			true,
			[]autoshift.Request{req(autoshift.DirectionRearUp, 1)},
		},
		{
			"Highest",
			gears.Position{Front: 2, Rear: 10},
			gears.Position{Front: 2, Rear: 10},
			false,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := newTestShifter(t, tt.start)

			moved := s.ShiftUp()
			assert.Equal(t, tt.expectedMoved, moved)
			assert.Equal(t, tt.expectedPos, s.Position())

			got := rec.Requests()
			if len(tt.expectedReqs) == 0 {
				assert.Empty(t, got)
				return
			}
			if diff := cmp.Diff(tt.expectedReqs, got); diff != "" {
				t.Errorf("unexpected requests (-want +got):\n%s", diff)
			}
		})
	}
}

func TestShiftDown(t *testing.T) {
	tests := []struct {
		name          string
		start         gears.Position
		expectedPos   gears.Position
		expectedMoved bool
		expectedReqs  []autoshift.Request
	}{
		{
			"Lowest",
			gears.Position{Front: 1, Rear: 1},
			gears.Position{Front: 1, Rear: 1},
			false,
			nil,
		},
		{
			"SmallRingRear",
			gears.Position{Front: 1, Rear: 5},
			gears.Position{Front: 1, Rear: 4},
			true,
			[]autoshift.Request{req(autoshift.DirectionRearDown, 1)},
		},
		{
			"BigRingRear",
			gears.Position{Front: 2, Rear: 4},
			gears.Position{Front: 2, Rear: 3},
			true,
			[]autoshift.Request{req(autoshift.DirectionRearDown, 1)},
		},
		{
			"Crossover",
			gears.Position{Front: 2, Rear: 3},
			gears.Position{Front: 1, Rear: 7},
			true,
			[]autoshift.Request{req(autoshift.DirectionFrontDown, 1), req(autoshift.DirectionRearUp, 4)},
		},
		{
			"CrossoverFromBeyond",
			gears.Position{Front: 2, Rear: 1},
			gears.Position{Front: 1, Rear: 7},
			true,
			[]autoshift.Request{req(autoshift.DirectionFrontDown, 1), req(autoshift.DirectionRearUp, 6)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := newTestShifter(t, tt.start)

			moved := s.ShiftDown()
			assert.Equal(t, tt.expectedMoved, moved)
			assert.Equal(t, tt.expectedPos, s.Position())

			got := rec.Requests()
			if len(tt.expectedReqs) == 0 {
				assert.Empty(t, got)
				return
			}
			if diff := cmp.Diff(tt.expectedReqs, got); diff != "" {
				t.Errorf("unexpected requests (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpThenDownReturns(t *testing.T) {
	for _, start := range allPositions() {
		s, _ := newTestShifter(t, start)

		if !s.ShiftUp() {
			assert.Equal(t, gears.Position{Front: 2, Rear: 10}, start)
			continue
		}
		s.ShiftDown()

		switch {
		case start.Front == 1 && start.Rear >= 8:
			// 1/8 -> 2/4 -> 2/3
			assert.Equal(t, gears.Position{Front: 2, Rear: 3}, s.Position(), "start %s", start)
		case start.Front == 2 && start.Rear < 3:
			// only reachable by correction, shifting down from 2/3 or below always crosses
			assert.Equal(t, gears.Position{Front: 1, Rear: 7}, s.Position(), "start %s", start)
		default:
			assert.Equal(t, start, s.Position(), "start %s", start)
		}
	}
}

func TestCrossoverIsNotInvertible(t *testing.T) {
	s, _ := newTestShifter(t, gears.Position{Front: 1, Rear: 8})

	require.True(t, s.ShiftUp())
	require.Equal(t, gears.Position{Front: 2, Rear: 4}, s.Position())

	require.True(t, s.ShiftDown())
	require.Equal(t, gears.Position{Front: 2, Rear: 3}, s.Position())

	require.True(t, s.ShiftDown())
	assert.Equal(t, gears.Position{Front: 1, Rear: 7}, s.Position())
	assert.NotEqual(t, gears.Position{Front: 1, Rear: 8}, s.Position())
}

func TestShiftStaysInBounds(t *testing.T) {
	table := gears.DefaultTable()
	s, _ := newTestShifter(t, table.Lowest())

	for range 40 {
		s.ShiftUp()
		require.True(t, table.Contains(s.Position()))
	}
	assert.Equal(t, table.Highest(), s.Position())

	for range 40 {
		s.ShiftDown()
		require.True(t, table.Contains(s.Position()))
	}
	assert.Equal(t, table.Lowest(), s.Position())
}

func TestReset(t *testing.T) {
	expected := []autoshift.Request{
		req(autoshift.DirectionFrontDown, 1),
		req(autoshift.DirectionRearDown, 10),
	}

	for _, start := range allPositions() {
		t.Run(start.String(), func(t *testing.T) {
			s, rec := newTestShifter(t, start)

			s.Reset()

			assert.Equal(t, gears.Position{Front: 1, Rear: 1}, s.Position())
			if diff := cmp.Diff(expected, rec.Requests()); diff != "" {
				t.Errorf("unexpected requests (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMoveTo(t *testing.T) {
	tests := []struct {
		name         string
		start        gears.Position
		target       gears.Position
		expectedPos  gears.Position
		expectedReqs []autoshift.Request
	}{
		{
			"RearOnly",
			gears.Position{Front: 1, Rear: 5},
			gears.Position{Front: 1, Rear: 4},
			gears.Position{Front: 1, Rear: 4},
			[]autoshift.Request{req(autoshift.DirectionRearDown, 1)},
		},
		{
			"FrontFirst",
			gears.Position{Front: 1, Rear: 5},
			gears.Position{Front: 2, Rear: 7},
			gears.Position{Front: 2, Rear: 7},
			[]autoshift.Request{req(autoshift.DirectionFrontUp, 1), req(autoshift.DirectionRearUp, 2)},
		},
		{
			"FrontOnlyNoCrossover",
			gears.Position{Front: 2, Rear: 3},
			gears.Position{Front: 1, Rear: 3},
			gears.Position{Front: 1, Rear: 3},
			[]autoshift.Request{req(autoshift.DirectionFrontDown, 1)},
		},
		{
			"Clamped",
			gears.Position{Front: 2, Rear: 9},
			gears.Position{Front: 3, Rear: 12},
			gears.Position{Front: 2, Rear: 10},
			[]autoshift.Request{req(autoshift.DirectionRearUp, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := newTestShifter(t, tt.start)

			assert.True(t, s.MoveTo(tt.target))
			assert.Equal(t, tt.expectedPos, s.Position())
			if diff := cmp.Diff(tt.expectedReqs, rec.Requests()); diff != "" {
				t.Errorf("unexpected requests (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("Same", func(t *testing.T) {
		s, rec := newTestShifter(t, gears.Position{Front: 1, Rear: 3})
		assert.False(t, s.MoveTo(gears.Position{Front: 1, Rear: 3}))
		assert.Empty(t, rec.Requests())
	})
}

func TestNilPort(t *testing.T) {
	s := New(gears.DefaultTable(), nil)
	assert.True(t, s.ShiftUp())
	s.Reset()
	assert.Equal(t, gears.Position{Front: 1, Rear: 1}, s.Position())
}
