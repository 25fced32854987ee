// Package ridelog stores ticks and events from simulations and monitored rides in SQLite
package ridelog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/autoshift/controller"
	"github.com/calvinmclean/autoshift/gears"
	"github.com/calvinmclean/autoshift/telemetry"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// schema.sql creates the tables for sessions, their ticks and the events that happened in each tick
//
//go:embed schema.sql
var schemaSQL string

var ErrSessionNotFound = errors.New("session not found")

type RideDB struct {
	*sql.DB
}

// Open creates or opens the database at path. Use ":memory:" for a temporary database
func Open(path string) (*RideDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	_, err = db.Exec(schemaSQL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating schema: %w", err)
	}

	return &RideDB{db}, nil
}

// Session is a single ride or simulation run
type Session struct {
	ID        string
	Name      string
	Source    string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Tick is a stored tick with its events
type Tick struct {
	Seq             int
	Position        gears.Position
	SpeedKmh        float64
	ExpectedCadence float64
	MeasuredCadence float64
	RecordedAt      time.Time
	Events          []controller.Event
}

// StartSession creates a new Session. source describes where ticks come from, like "sim" or a serial port
func (db *RideDB) StartSession(ctx context.Context, name, source string, now time.Time) (Session, error) {
	s := Session{
		ID:        uuid.New().String(),
		Name:      name,
		Source:    source,
		StartedAt: now.UTC(),
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO ride_sessions (session_id, name, source, started_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.Name, s.Source, s.StartedAt,
	)
	if err != nil {
		return Session{}, fmt.Errorf("error inserting session: %w", err)
	}

	return s, nil
}

// EndSession sets the end time of a Session
func (db *RideDB) EndSession(ctx context.Context, id string, now time.Time) error {
	res, err := db.ExecContext(ctx, `UPDATE ride_sessions SET ended_at = ? WHERE session_id = ?`, now.UTC(), id)
	if err != nil {
		return fmt.Errorf("error updating session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// GetSession reads a Session by ID
func (db *RideDB) GetSession(ctx context.Context, id string) (Session, error) {
	var (
		s     Session
		ended sql.NullTime
	)
	err := db.QueryRowContext(ctx,
		`SELECT session_id, name, source, started_at, ended_at FROM ride_sessions WHERE session_id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.Source, &s.StartedAt, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("error reading session: %w", err)
	}

	if ended.Valid {
		s.EndedAt = &ended.Time
	}
	return s, nil
}

// RecordTick stores a tick and its events in one transaction
func (db *RideDB) RecordTick(ctx context.Context, sessionID string, seq int, r telemetry.Record, now time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ride_ticks (session_id, seq, front, rear, speed_kmh, expected_cadence, measured_cadence, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, seq, r.Position.Front, r.Position.Rear, r.SpeedKmh, r.ExpectedCadence, r.MeasuredCadence, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting tick: %w", err)
	}

	for _, e := range r.Events {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ride_events (session_id, seq, kind, detail) VALUES (?, ?, ?, ?)`,
			sessionID, seq, string(e.Kind), e.Detail,
		)
		if err != nil {
			return fmt.Errorf("error inserting event: %w", err)
		}
	}

	return tx.Commit()
}

// Ticks reads all ticks of a Session in order
func (db *RideDB) Ticks(ctx context.Context, sessionID string) ([]Tick, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT seq, front, rear, speed_kmh, expected_cadence, measured_cadence, recorded_at
		 FROM ride_ticks WHERE session_id = ? ORDER BY seq`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying ticks: %w", err)
	}
	defer rows.Close()

	var (
		result []Tick
		index  = map[int]int{}
	)
	for rows.Next() {
		var t Tick
		err = rows.Scan(&t.Seq, &t.Position.Front, &t.Position.Rear, &t.SpeedKmh, &t.ExpectedCadence, &t.MeasuredCadence, &t.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning tick: %w", err)
		}
		index[t.Seq] = len(result)
		result = append(result, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	events, err := db.QueryContext(ctx,
		`SELECT seq, kind, detail FROM ride_events WHERE session_id = ? ORDER BY seq, event_id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying events: %w", err)
	}
	defer events.Close()

	for events.Next() {
		var (
			seq  int
			kind string
			e    controller.Event
		)
		err = events.Scan(&seq, &kind, &e.Detail)
		if err != nil {
			return nil, fmt.Errorf("error scanning event: %w", err)
		}
		e.Kind = controller.EventKind(kind)

		i, ok := index[seq]
		if !ok {
			continue
		}
		result[i].Events = append(result[i].Events, e)
	}

	return result, events.Err()
}

// EventCounts counts events of each kind in a Session
func (db *RideDB) EventCounts(ctx context.Context, sessionID string) (map[controller.EventKind]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM ride_events WHERE session_id = ? GROUP BY kind`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("error counting events: %w", err)
	}
	defer rows.Close()

	result := map[controller.EventKind]int{}
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		result[controller.EventKind(kind)] = count
	}
	return result, rows.Err()
}
