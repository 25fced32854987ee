// Package gears describes the drivetrain: tooth counts for the front rings and rear sprockets, and the fixed
// crossover points used when the front ring changes.
package gears

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidTable = errors.New("invalid gear table")

// Position is a gear selection. Both indexes are 1-based: Front 1 is the small ring and Rear 1 is the
// largest sprocket, so higher indexes are higher ratios.
type Position struct {
	Front int
	Rear  int
}

func (p Position) String() string {
	return strconv.Itoa(p.Front) + "/" + strconv.Itoa(p.Rear)
}

// Crossover is the fixed rear partner used when the front ring changes. When shifting through At, the chain
// moves to the other ring and the rear moves to To. These are lookup constants, not computed nearest ratios.
type Crossover struct {
	At int
	To int
}

// Table holds the tooth counts of the drivetrain
type Table struct {
	// Front tooth counts, small ring first
	Front []float64
	// Rear tooth counts, largest sprocket first
	Rear []float64

	// Up is used when shifting up on the small ring
	Up Crossover
	// Down is used when shifting down on the big ring
	Down Crossover
}

// DefaultTable returns the 34/50 compact crankset with a 12-25 ten speed cassette
func DefaultTable() Table {
	return Table{
		Front: []float64{34, 50},
		Rear:  []float64{25, 23, 21, 19, 17, 16, 15, 14, 13, 12},
		Up:    Crossover{At: 8, To: 4},
		Down:  Crossover{At: 3, To: 7},
	}
}

// Validate checks that the table has exactly two rings, strictly ordered tooth counts and crossover
// points inside the cassette
func (t Table) Validate() error {
	if len(t.Front) != 2 {
		return fmt.Errorf("%w: expected 2 front rings, got %d", ErrInvalidTable, len(t.Front))
	}
	if len(t.Rear) < 2 {
		return fmt.Errorf("%w: expected at least 2 rear sprockets, got %d", ErrInvalidTable, len(t.Rear))
	}

	for i := 1; i < len(t.Front); i++ {
		if t.Front[i] <= t.Front[i-1] {
			return fmt.Errorf("%w: front rings must be strictly increasing", ErrInvalidTable)
		}
	}
	for i := 1; i < len(t.Rear); i++ {
		if t.Rear[i] >= t.Rear[i-1] {
			return fmt.Errorf("%w: rear sprockets must be strictly decreasing", ErrInvalidTable)
		}
	}
	if t.Front[0] <= 0 || t.Rear[len(t.Rear)-1] <= 0 {
		return fmt.Errorf("%w: tooth counts must be positive", ErrInvalidTable)
	}

	for _, c := range []Crossover{t.Up, t.Down} {
		if !t.validRear(c.At) || !t.validRear(c.To) {
			return fmt.Errorf("%w: crossover outside of rear sprockets", ErrInvalidTable)
		}
	}

	return nil
}

// Lowest is the easiest gear and the state after power up or reset
func (t Table) Lowest() Position {
	return Position{Front: 1, Rear: 1}
}

// Highest is the hardest gear
func (t Table) Highest() Position {
	return Position{Front: len(t.Front), Rear: len(t.Rear)}
}

// Contains reports if the Position exists in this drivetrain
func (t Table) Contains(p Position) bool {
	return p.Front >= 1 && p.Front <= len(t.Front) && t.validRear(p.Rear)
}

// Ratio is front teeth divided by rear teeth. It panics if the Position is not in the table
func (t Table) Ratio(p Position) float64 {
	return t.Front[p.Front-1] / t.Rear[p.Rear-1]
}

// Clamp limits a Position to the bounds of the table
func (t Table) Clamp(p Position) Position {
	p.Front = clamp(p.Front, 1, len(t.Front))
	p.Rear = clamp(p.Rear, 1, len(t.Rear))
	return p
}

func (t Table) validRear(i int) bool {
	return i >= 1 && i <= len(t.Rear)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
