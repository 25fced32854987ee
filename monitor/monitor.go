// Package monitor connects to the firmware over USB serial. It forwards reset commands to the board and records
// the telemetry it prints to a local ride log and TWChart.
package monitor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/calvinmclean/autoshift"
	"github.com/calvinmclean/autoshift/controller"
	"github.com/calvinmclean/autoshift/ridelog"
	"github.com/calvinmclean/autoshift/telemetry"
	"github.com/calvinmclean/autoshift/twchart"
)

// Monitor records a single ride
type Monitor struct {
	port     io.ReadWriteCloser
	uploader Uploader
	db       *ridelog.RideDB
	session  ridelog.Session
	logger   *slog.Logger
	now      func() time.Time

	seq  int
	last telemetry.Record
}

// Option customizes a Monitor
type Option func(*Monitor)

// WithUploader replaces the TWChart client created from Config
func WithUploader(u Uploader) Option {
	return func(m *Monitor) {
		m.uploader = u
	}
}

// WithClock is used by tests
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// NewFromEnv uses ConfigFromEnv and opens the serial port
func NewFromEnv(ctx context.Context, logger *slog.Logger) (*Monitor, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	port, err := OpenSerial(cfg)
	if err != nil {
		return nil, err
	}

	return New(ctx, cfg, port, logger)
}

// New starts a ride session. port may be nil to run without a device
func New(ctx context.Context, cfg Config, port io.ReadWriteCloser, logger *slog.Logger, opts ...Option) (*Monitor, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Monitor{
		port:     port,
		uploader: noopUploader{},
		logger:   logger,
		now:      time.Now,
	}
	if cfg.TWChartAddr != "" {
		m.uploader = twchart.NewClient(cfg.TWChartAddr)
	}
	for _, opt := range opts {
		opt(m)
	}

	name := cfg.SessionName
	if name == "" {
		name = "Ride " + m.now().Format(time.DateTime)
	}

	probes, err := cfg.Probes()
	if err != nil {
		return nil, err
	}

	now := m.now()
	id, err := m.uploader.CreateSession(ctx, name, probes, now)
	if err != nil {
		return nil, fmt.Errorf("error creating TWChart session: %w", err)
	}
	if err := m.uploader.SetStartTime(ctx, now); err != nil {
		return nil, fmt.Errorf("error setting TWChart start time: %w", err)
	}
	if err := m.uploader.AddStage(ctx, "Ride", now); err != nil {
		return nil, fmt.Errorf("error adding TWChart stage: %w", err)
	}
	if id != "" {
		logger.Info("created TWChart session", "id", id)
	}

	if cfg.DBPath != "" {
		m.db, err = ridelog.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("error opening ride log: %w", err)
		}

		m.session, err = m.db.StartSession(ctx, name, cfg.SerialPort, now)
		if err != nil {
			m.db.Close()
			return nil, fmt.Errorf("error starting ride log session: %w", err)
		}
		logger.Info("started ride log session", "id", m.session.ID, "path", cfg.DBPath)
	}

	return m, nil
}

// Last returns the most recent telemetry
func (m *Monitor) Last() telemetry.Record {
	return m.last
}

// SendReset asks the firmware to shift to the lowest gear
func (m *Monitor) SendReset() error {
	if m.port == nil {
		m.logger.Warn("no device connected, ignoring reset")
		return nil
	}

	_, err := m.port.Write([]byte{autoshift.ResetCommand, '\n'})
	if err != nil {
		return fmt.Errorf("error writing reset: %w", err)
	}
	m.logger.Info("sent reset")
	return nil
}

// HandleCommand runs a single command typed by the rider or sent from the UI
func (m *Monitor) HandleCommand(cmd string) error {
	cmd = strings.TrimSpace(cmd)
	switch strings.ToLower(cmd) {
	case "":
		return nil
	case "r", "reset":
		return m.SendReset()
	default:
		return fmt.Errorf("unknown command: %q", cmd)
	}
}

// Run reads commands from r and forwards every line from the device to w. It returns when the device stops
// sending, or when r ends if there is no device
func (m *Monitor) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	commandsDone := make(chan error, 1)
	go func() {
		commandsDone <- m.readCommands(ctx, r)
	}()

	if m.port == nil {
		select {
		case err := <-commandsDone:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	tailDone := make(chan error, 1)
	go func() {
		tailDone <- m.Tail(ctx, m.port, w)
	}()

	select {
	case err := <-tailDone:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) readCommands(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := m.HandleCommand(scanner.Text())
		if err != nil {
			m.logger.Warn("invalid command", "error", err)
		}
	}
	return scanner.Err()
}

// Tail reads device output line by line. Telemetry is recorded and every line is copied to w
func (m *Monitor) Tail(ctx context.Context, device io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(device)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if telemetry.IsTelemetry(line) {
			err := m.handleTelemetry(ctx, line)
			if err != nil {
				return err
			}
		} else {
			m.logger.Info("device", "line", line)
		}

		if w != nil {
			_, err := fmt.Fprintln(w, line)
			if err != nil {
				return fmt.Errorf("error forwarding output: %w", err)
			}
		}
	}

	return scanner.Err()
}

func (m *Monitor) handleTelemetry(ctx context.Context, line string) error {
	r, err := telemetry.Parse(line)
	if err != nil {
		m.logger.Warn("invalid telemetry", "line", line, "error", err)
		return nil
	}

	m.seq++
	m.last = r
	now := m.now()

	m.logger.Debug("tick",
		"seq", m.seq,
		"gear", r.Position.String(),
		"speed_kmh", r.SpeedKmh,
		"expected_cadence", r.ExpectedCadence,
		"measured_cadence", r.MeasuredCadence,
	)

	if m.db != nil {
		err = m.db.RecordTick(ctx, m.session.ID, m.seq, r, now)
		if err != nil {
			return fmt.Errorf("error recording tick: %w", err)
		}
	}

	uploadEvents(ctx, m.uploader, m.logger, r.Events, now)
	return nil
}

// uploadEvents logs and uploads the events from a single tick. Upload errors are logged and do not stop the ride
func uploadEvents(ctx context.Context, u Uploader, logger *slog.Logger, events []controller.Event, now time.Time) {
	for _, e := range events {
		level := slog.LevelInfo
		if e.Kind == controller.EventWarning || e.Kind == controller.EventError {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "event", "kind", e.Kind, "detail", e.Detail)

		var err error
		switch e.Kind {
		case controller.EventReset:
			err = u.AddStage(ctx, "Reset", now)
		case controller.EventShiftUp, controller.EventShiftDown, controller.EventCorrection:
			err = u.AddEvent(ctx, string(e.Kind)+" "+e.Detail, now)
		}
		if err != nil {
			logger.Error("error uploading event", "kind", e.Kind, "error", err)
		}
	}
}

// Close finishes the ride and closes the device
func (m *Monitor) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := m.now()
	var errs []error

	if err := m.uploader.Done(ctx, now); err != nil {
		errs = append(errs, fmt.Errorf("error finishing TWChart session: %w", err))
	}

	if m.db != nil {
		if err := m.db.EndSession(ctx, m.session.ID, now); err != nil {
			errs = append(errs, fmt.Errorf("error ending ride log session: %w", err))
		}
		if err := m.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if m.port != nil {
		if err := m.port.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing serial port: %w", err))
		}
	}

	return errors.Join(errs...)
}
