package controller

import (
	"strings"

	"github.com/calvinmclean/autoshift/drift"
	"github.com/calvinmclean/autoshift/gears"
)

// EventKind is the type of something notable that happened during a tick
type EventKind string

const (
	EventShiftUp    EventKind = "shift_up"
	EventShiftDown  EventKind = "shift_down"
	EventCorrection EventKind = "correction"
	EventAmbiguous  EventKind = "ambiguous"
	EventReset      EventKind = "reset"
	EventWarning    EventKind = "warning"
	EventError      EventKind = "error"
)

// Event is used by logging and telemetry. Detail never contains ',' or '|' so Events can be joined into a
// telemetry line
type Event struct {
	Kind   EventKind
	Detail string
}

func (e Event) String() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ":" + e.Detail
}

// ParseEvent reverses Event.String
func ParseEvent(s string) Event {
	kind, detail, _ := strings.Cut(s, ":")
	return Event{Kind: EventKind(kind), Detail: detail}
}

// Events lists what happened in the tick in the order it happened
func (o Output) Events() []Event {
	var events []Event

	for _, w := range o.Warnings {
		events = append(events, Event{EventWarning, sanitize(w.Error())})
	}

	switch o.Shift {
	case ShiftUp:
		events = append(events, Event{EventShiftUp, transition(o.Previous, o.Shifted)})
	case ShiftDown:
		events = append(events, Event{EventShiftDown, transition(o.Previous, o.Shifted)})
	}

	if o.Verdict == drift.VerdictAmbiguous {
		events = append(events, Event{Kind: EventAmbiguous})
	}
	if o.Corrected {
		events = append(events, Event{EventCorrection, transition(o.Shifted, o.Hypothesis.Position)})
	}

	if o.Reset {
		events = append(events, Event{Kind: EventReset})
	}

	return events
}

// ErrorEvent formats a Tick error as an Event
func ErrorEvent(err error) Event {
	return Event{EventError, sanitize(err.Error())}
}

func transition(from, to gears.Position) string {
	return from.String() + ">" + to.String()
}

var sanitizer = strings.NewReplacer(",", ";", "|", "/")

func sanitize(s string) string {
	return sanitizer.Replace(s)
}
