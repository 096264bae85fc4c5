// Package telemetry records line follower runs tick by tick in SQLite.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Unusable is stored in place of a column that the tracker could not use.
const Unusable = -1

type DB struct {
	*sql.DB
}

// Run is one start-to-stop session of the control loop.
type Run struct {
	ID      string
	Started time.Time
	Note    string
}

// Tick is one recorded pass of the control loop.
type Tick struct {
	RunID    string
	Tick     int
	Time     time.Time
	Phase    string
	Target   int
	Steering float64
	Throttle float64
	Err      string
	// Columns maps color label to column, Unusable when not usable.
	Columns map[string]int
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			started_ns        BIGINT,
			note              TEXT
		);
		CREATE TABLE IF NOT EXISTS ticks (
			run_id            TEXT,
			tick              BIGINT,
			ts_ns             BIGINT,
			phase             TEXT,
			target            BIGINT,
			steering          DOUBLE,
			throttle          DOUBLE,
			err               TEXT,
			PRIMARY KEY(run_id, tick),
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS observations (
			run_id            TEXT,
			tick              BIGINT,
			label             TEXT,
			col               BIGINT,
			PRIMARY KEY(run_id, tick, label)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create telemetry schema: %w", err)
	}

	return &DB{db}, nil
}

// StartRun registers a new run and returns its id.
func (db *DB) StartRun(ctx context.Context, started time.Time, note string) (string, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_ns, note) VALUES (?, ?, ?)`,
		id, started.UnixNano(), note)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// Runs lists all runs, oldest first.
func (db *DB) Runs(ctx context.Context) ([]Run, error) {
	rows, err := db.QueryContext(ctx, `SELECT run_id, started_ns, note FROM runs ORDER BY started_ns`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var ns int64
		if err := rows.Scan(&r.ID, &ns, &r.Note); err != nil {
			return nil, err
		}
		r.Started = time.Unix(0, ns)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (db *DB) RecordTick(ctx context.Context, t Tick) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ticks (run_id, tick, ts_ns, phase, target, steering, throttle, err)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RunID, t.Tick, t.Time.UnixNano(), t.Phase, t.Target, t.Steering, t.Throttle, t.Err)
	if err != nil {
		return fmt.Errorf("failed to insert tick %d: %w", t.Tick, err)
	}

	for label, col := range t.Columns {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO observations (run_id, tick, label, col) VALUES (?, ?, ?, ?)`,
			t.RunID, t.Tick, label, col)
		if err != nil {
			return fmt.Errorf("failed to insert %s observation for tick %d: %w", label, t.Tick, err)
		}
	}

	return tx.Commit()
}

// Ticks returns the ticks of a run in order, with their observations.
func (db *DB) Ticks(ctx context.Context, runID string) ([]Tick, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT tick, ts_ns, phase, target, steering, throttle, err
		FROM ticks WHERE run_id = ? ORDER BY tick`, runID)
	if err != nil {
		return nil, err
	}

	var ticks []Tick
	index := map[int]int{}
	for rows.Next() {
		t := Tick{RunID: runID, Columns: map[string]int{}}
		var ns int64
		if err := rows.Scan(&t.Tick, &ns, &t.Phase, &t.Target, &t.Steering, &t.Throttle, &t.Err); err != nil {
			rows.Close()
			return nil, err
		}
		t.Time = time.Unix(0, ns)
		index[t.Tick] = len(ticks)
		ticks = append(ticks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	obs, err := db.QueryContext(ctx, `SELECT tick, label, col FROM observations WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer obs.Close()
	for obs.Next() {
		var tick, col int
		var label string
		if err := obs.Scan(&tick, &label, &col); err != nil {
			return nil, err
		}
		if i, ok := index[tick]; ok {
			ticks[i].Columns[label] = col
		}
	}
	return ticks, obs.Err()
}
