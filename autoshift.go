package autoshift

// ResetCommand is the only byte the firmware acts on over its serial console. It shifts both derailleurs to
// the lowest gear and resets the believed gear to 1/1. Every other byte is ignored.
const ResetCommand = 'R'

// Direction selects one of the four actuation lines
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionFrontUp
	DirectionFrontDown
	DirectionRearUp
	DirectionRearDown
)

func (d Direction) String() string {
	switch d {
	case DirectionFrontUp:
		return "FrontUp"
	case DirectionFrontDown:
		return "FrontDown"
	case DirectionRearUp:
		return "RearUp"
	case DirectionRearDown:
		return "RearDown"
	default:
		fallthrough
	case DirectionUnknown:
		return "Unknown"
	}
}

// Valid reports if the Direction maps to an actuation line
func (d Direction) Valid() bool {
	return d >= DirectionFrontUp && d <= DirectionRearDown
}

// Request asks the actuation layer to pulse a line Pulses times. Each pulse moves the derailleur by one position
type Request struct {
	Direction Direction
	Pulses    uint
}

func (r Request) String() string {
	return r.Direction.String() + "x" + uitoa(r.Pulses)
}

// uitoa avoids pulling strconv into firmware builds for a single number
func uitoa(v uint) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte(v%10) + '0'
		v /= 10
	}
	return string(buf[i:])
}
