package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/calvinmclean/autoshift/controller"
	"github.com/calvinmclean/autoshift/telemetry"
)

// LogSink logs every tick at debug level and its events at info or warn
func LogSink(logger *slog.Logger) controller.Sink {
	return controller.SinkFunc(func(ctx context.Context, in controller.Input, out controller.Output, tickErr error) error {
		logger.Debug("tick",
			"tick", out.Tick,
			"gear", out.Position.String(),
			"speed_kmh", out.SpeedKmh,
			"expected_cadence", out.ExpectedCadence,
			"measured_cadence", out.MeasuredCadence,
			"shift", out.Shift.String(),
			"verdict", out.Verdict.String(),
		)

		for _, e := range telemetry.FromOutput(out, tickErr).Events {
			level := slog.LevelInfo
			if e.Kind == controller.EventWarning || e.Kind == controller.EventError {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "event", "tick", out.Tick, "kind", e.Kind, "detail", e.Detail)
		}
		return nil
	})
}

// UploadSink sends shifts, corrections, and resets from a local control loop to TWChart. now returns the time
// recorded for a tick, which lets a simulation space ticks by their wheel interval
func UploadSink(u Uploader, now func() time.Time) controller.Sink {
	return controller.SinkFunc(func(ctx context.Context, _ controller.Input, out controller.Output, tickErr error) error {
		uploadEvents(ctx, u, slog.New(slog.DiscardHandler), telemetry.FromOutput(out, tickErr).Events, now())
		return nil
	})
}
