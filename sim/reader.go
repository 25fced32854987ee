// Package sim replays recorded or synthetic rides through the controller. Input vectors are read from CSV, one
// row per tick, and output vectors are written back as CSV.
package sim

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/calvinmclean/autoshift/cadence"
	"github.com/calvinmclean/autoshift/controller"
)

// InputHeader names the input vector columns
var InputHeader = []string{"target_cadence", "wheel_inch", "tolerance_pct", "wheel_interval_ms", "crank_interval_ms", "reset"}

// Reader reads input vectors. It implements controller.Source
type Reader struct {
	csv           *csv.Reader
	crankDebounce time.Duration
	row           int
}

var _ controller.Source = &Reader{}

// NewReader reads input vectors from r. Crank intervals shorter than crankDebounce are treated as bounce and
// produce no cadence measurement. A header row is optional
func NewReader(r io.Reader, crankDebounce time.Duration) *Reader {
	c := csv.NewReader(r)
	c.Comment = '#'
	c.FieldsPerRecord = -1
	c.TrimLeadingSpace = true

	return &Reader{csv: c, crankDebounce: crankDebounce}
}

// Next implements controller.Source.
func (r *Reader) Next(ctx context.Context) (controller.Input, error) {
	for {
		if err := ctx.Err(); err != nil {
			return controller.Input{}, err
		}

		record, err := r.csv.Read()
		if err != nil {
			return controller.Input{}, err
		}
		r.row++

		if r.row == 1 && isHeader(record) {
			continue
		}

		in, err := r.parse(record)
		if err != nil {
			return controller.Input{}, fmt.Errorf("row %d: %w", r.row, err)
		}
		return in, nil
	}
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.TrimSpace(record[0]) == InputHeader[0]
}

func (r *Reader) parse(record []string) (controller.Input, error) {
	if len(record) < 4 || len(record) > len(InputHeader) {
		return controller.Input{}, fmt.Errorf("expected 4 to %d columns, got %d", len(InputHeader), len(record))
	}

	values := make([]float64, len(InputHeader))
	set := make([]bool, len(InputHeader))
	for i, field := range record {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		set[i] = true
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return controller.Input{}, fmt.Errorf("failed to parse %s: %w", InputHeader[i], err)
		}
		values[i] = v
	}

	crankInterval := time.Duration(values[4]) * time.Millisecond
	measured := 0.0
	if crankInterval >= r.crankDebounce {
		measured = cadence.CrankCadence(crankInterval.Milliseconds())
	}

	in := controller.Input{
		WheelSizeInch:   int(values[1]),
		WheelIntervalMs: int64(values[3]),
		MeasuredCadence: measured,
		Reset:           values[5] == 1,
	}
	// empty target or tolerance columns use the configured band
	if set[0] {
		in.TargetCadence = controller.Float(values[0])
	}
	if set[2] {
		in.TolerancePercent = controller.Float(values[2])
	}

	return in, nil
}

// ErrNoInput is returned by ReadAll for an input without any vectors
var ErrNoInput = errors.New("no input vectors")

// ReadAll reads every remaining input vector
func (r *Reader) ReadAll(ctx context.Context) ([]controller.Input, error) {
	var result []controller.Input
	for {
		in, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		result = append(result, in)
	}

	if len(result) == 0 {
		return nil, ErrNoInput
	}
	return result, nil
}
