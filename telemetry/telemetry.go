// Package telemetry formats and parses the line the firmware prints on its serial console after every tick:
//
//	front,rear,speed,expected,measured,events
//
// where events is a '|' separated list of controller Events and may be empty.
package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinmclean/autoshift/controller"
	"github.com/calvinmclean/autoshift/gears"
)

const fields = 6

var ErrMalformed = errors.New("malformed telemetry line")

// Record is one parsed telemetry line
type Record struct {
	Position        gears.Position
	SpeedKmh        float64
	ExpectedCadence float64
	MeasuredCadence float64
	Events          []controller.Event
}

// FromOutput creates a Record from a tick. A non-nil tickErr is added as an error Event
func FromOutput(out controller.Output, tickErr error) Record {
	events := out.Events()
	if tickErr != nil {
		events = append(events, controller.ErrorEvent(tickErr))
	}

	return Record{
		Position:        out.Position,
		SpeedKmh:        out.SpeedKmh,
		ExpectedCadence: out.ExpectedCadence,
		MeasuredCadence: out.MeasuredCadence,
		Events:          events,
	}
}

// Format creates the telemetry line without a trailing newline
func Format(r Record) string {
	events := make([]string, len(r.Events))
	for i, e := range r.Events {
		events[i] = e.String()
	}

	return strings.Join([]string{
		strconv.Itoa(r.Position.Front),
		strconv.Itoa(r.Position.Rear),
		formatFloat(r.SpeedKmh),
		formatFloat(r.ExpectedCadence),
		formatFloat(r.MeasuredCadence),
		strings.Join(events, "|"),
	}, ",")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// IsTelemetry is a quick check used to separate telemetry from log lines on the same serial console
func IsTelemetry(line string) bool {
	return strings.Count(line, ",") == fields-1 && !strings.HasPrefix(line, "[")
}

// Parse reads a telemetry line. Surrounding whitespace is ignored
func Parse(line string) (Record, error) {
	segments := strings.Split(strings.TrimSpace(line), ",")
	if len(segments) != fields {
		return Record{}, fmt.Errorf("%w: expected %d segments, got %d", ErrMalformed, fields, len(segments))
	}

	var (
		r   Record
		err error
	)

	r.Position.Front, err = strconv.Atoi(segments[0])
	if err != nil {
		return Record{}, fmt.Errorf("%w: failed to parse front: %w", ErrMalformed, err)
	}
	r.Position.Rear, err = strconv.Atoi(segments[1])
	if err != nil {
		return Record{}, fmt.Errorf("%w: failed to parse rear: %w", ErrMalformed, err)
	}

	r.SpeedKmh, err = strconv.ParseFloat(segments[2], 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: failed to parse speed: %w", ErrMalformed, err)
	}
	r.ExpectedCadence, err = strconv.ParseFloat(segments[3], 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: failed to parse expected cadence: %w", ErrMalformed, err)
	}
	r.MeasuredCadence, err = strconv.ParseFloat(segments[4], 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: failed to parse measured cadence: %w", ErrMalformed, err)
	}

	if segments[5] != "" {
		for _, e := range strings.Split(segments[5], "|") {
			r.Events = append(r.Events, controller.ParseEvent(e))
		}
	}

	return r, nil
}

// HasEvent checks if the Record contains an Event of the kind
func (r Record) HasEvent(kind controller.EventKind) bool {
	for _, e := range r.Events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
