package sim

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/calvinmclean/autoshift/controller"
)

// OutputHeader names the output vector columns
var OutputHeader = []string{"tick", "front", "rear", "speed_kmh", "expected_cadence", "measured_cadence", "requests", "events", "error"}

// Writer writes output vectors. It implements controller.Sink
type Writer struct {
	csv         *csv.Writer
	wroteHeader bool
}

var _ controller.Sink = &Writer{}

func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Record implements controller.Sink.
func (w *Writer) Record(_ context.Context, _ controller.Input, out controller.Output, tickErr error) error {
	if !w.wroteHeader {
		err := w.csv.Write(OutputHeader)
		if err != nil {
			return fmt.Errorf("error writing header: %w", err)
		}
		w.wroteHeader = true
	}

	requests := make([]string, len(out.Requests))
	for i, r := range out.Requests {
		requests[i] = r.String()
	}

	events := make([]string, 0, len(out.Events()))
	for _, e := range out.Events() {
		events = append(events, e.String())
	}

	errStr := ""
	if tickErr != nil {
		errStr = tickErr.Error()
	}

	return w.csv.Write([]string{
		strconv.Itoa(out.Tick),
		strconv.Itoa(out.Position.Front),
		strconv.Itoa(out.Position.Rear),
		strconv.FormatFloat(out.SpeedKmh, 'f', 2, 64),
		strconv.FormatFloat(out.ExpectedCadence, 'f', 2, 64),
		strconv.FormatFloat(out.MeasuredCadence, 'f', 2, 64),
		strings.Join(requests, " "),
		strings.Join(events, " "),
		errStr,
	})
}

// Flush writes buffered rows to the underlying writer
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}
