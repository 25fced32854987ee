package ridelog

import (
	"context"
	"time"

	"github.com/calvinmclean/autoshift/controller"
	"github.com/calvinmclean/autoshift/telemetry"
)

// SessionSink stores every controller tick in a Session. It implements controller.Sink
type SessionSink struct {
	db        *RideDB
	sessionID string
	now       func() time.Time
}

var _ controller.Sink = &SessionSink{}

// NewSessionSink records to an existing Session
func NewSessionSink(db *RideDB, sessionID string) *SessionSink {
	return &SessionSink{db: db, sessionID: sessionID, now: time.Now}
}

// Record implements controller.Sink.
func (s *SessionSink) Record(ctx context.Context, _ controller.Input, out controller.Output, tickErr error) error {
	return s.db.RecordTick(ctx, s.sessionID, out.Tick, telemetry.FromOutput(out, tickErr), s.now())
}
