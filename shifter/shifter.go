// Package shifter holds the believed gear and moves the derailleurs. It is the only place where the
// believed gear changes.
package shifter

import (
	"github.com/calvinmclean/autoshift"
	"github.com/calvinmclean/autoshift/actuator"
	"github.com/calvinmclean/autoshift/gears"
)

// Shifter controls both derailleurs and tracks the gear they are believed to be in
type Shifter struct {
	table gears.Table
	port  actuator.Port

	current gears.Position
}

// New starts in the lowest gear without moving anything. Use Reset to physically move to the lowest gear
func New(table gears.Table, port actuator.Port) *Shifter {
	if port == nil {
		port = actuator.Discard
	}
	return &Shifter{
		table:   table,
		port:    port,
		current: table.Lowest(),
	}
}

// Position returns the believed gear
func (s *Shifter) Position() gears.Position {
	return s.current
}

// Table returns the drivetrain used by the Shifter
func (s *Shifter) Table() gears.Table {
	return s.table
}

// ShiftUp moves to the next harder gear. On the small ring it crosses to the big ring once the rear reaches
// the crossover point. It returns false if already in the highest gear
func (s *Shifter) ShiftUp() bool {
	rear := len(s.table.Rear)

	if s.current.Front == 1 {
		if s.current.Rear < s.table.Up.At {
			s.moveRear(+1)
			return true
		}
		s.crossRing(2, s.table.Up.To)
		return true
	}

	if s.current.Rear >= rear {
		return false
	}
	s.moveRear(+1)
	return true
}

// ShiftDown moves to the next easier gear. On the big ring it crosses to the small ring once the rear reaches
// the crossover point. It returns false if already in the lowest gear
func (s *Shifter) ShiftDown() bool {
	if s.current.Front == 1 {
		if s.current.Rear <= 1 {
			return false
		}
		s.moveRear(-1)
		return true
	}

	if s.current.Rear > s.table.Down.At {
		s.moveRear(-1)
		return true
	}
	s.crossRing(1, s.table.Down.To)
	return true
}

// MoveTo moves directly to the target one position at a time, front first and then rear, without using the
// crossover table. It is used to correct the believed gear when it has drifted from the real one. The target
// is clamped to the drivetrain. It returns false if nothing moved
func (s *Shifter) MoveTo(target gears.Position) bool {
	target = s.table.Clamp(target)
	if target == s.current {
		return false
	}

	s.moveFront(target.Front - s.current.Front)
	s.moveRear(target.Rear - s.current.Rear)
	return true
}

// Reset shifts down as far as possible from any position and sets the believed gear to the lowest. The real
// position is unknown, so both derailleurs get the worst case number of pulses. The rear gets an extra one
// against the limit stop to recalibrate
func (s *Shifter) Reset() {
	s.pulse(autoshift.DirectionFrontDown, len(s.table.Front)-1)
	s.pulse(autoshift.DirectionRearDown, len(s.table.Rear))

	s.current = s.table.Lowest()
}

func (s *Shifter) crossRing(front, rear int) {
	s.moveFront(front - s.current.Front)
	s.moveRear(rear - s.current.Rear)
}

func (s *Shifter) moveFront(delta int) {
	if delta > 0 {
		s.pulse(autoshift.DirectionFrontUp, delta)
	} else {
		s.pulse(autoshift.DirectionFrontDown, -delta)
	}
	s.current.Front += delta
}

func (s *Shifter) moveRear(delta int) {
	if delta > 0 {
		s.pulse(autoshift.DirectionRearUp, delta)
	} else {
		s.pulse(autoshift.DirectionRearDown, -delta)
	}
	s.current.Rear += delta
}

func (s *Shifter) pulse(d autoshift.Direction, n int) {
	if n <= 0 {
		return
	}
	s.port.Apply(autoshift.Request{Direction: d, Pulses: uint(n)})
}
