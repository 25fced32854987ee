package monitor

import (
	"context"
	"time"

	"github.com/calvinmclean/autoshift/twchart"
)

// Uploader sends a ride to TWChart
type Uploader interface {
	CreateSession(ctx context.Context, name string, probes twchart.Probes, now time.Time) (string, error)
	SetStartTime(ctx context.Context, startTime time.Time) error
	AddEvent(ctx context.Context, note string, now time.Time) error
	AddStage(ctx context.Context, name string, now time.Time) error
	Done(ctx context.Context, now time.Time) error
}

var _ Uploader = &twchart.Client{}

type noopUploader struct{}

var _ Uploader = noopUploader{}

// AddEvent implements Uploader.
func (noopUploader) AddEvent(context.Context, string, time.Time) error {
	return nil
}

// AddStage implements Uploader.
func (noopUploader) AddStage(context.Context, string, time.Time) error {
	return nil
}

// CreateSession implements Uploader.
func (noopUploader) CreateSession(context.Context, string, twchart.Probes, time.Time) (string, error) {
	return "", nil
}

// Done implements Uploader.
func (noopUploader) Done(context.Context, time.Time) error {
	return nil
}

// SetStartTime implements Uploader.
func (noopUploader) SetStartTime(context.Context, time.Time) error {
	return nil
}
