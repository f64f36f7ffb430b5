// Package history persists verification runs to SQLite so regressions
// can be traced back to the run that introduced them.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// NewStore opens the database, enables WAL mode, and applies the schema.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		origin TEXT NOT NULL,
		pass INTEGER NOT NULL,
		scenario_count INTEGER NOT NULL,
		pass_count INTEGER NOT NULL,
		fail_count INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS scenario_results (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		scenario TEXT NOT NULL,
		graph_hash TEXT,
		pass INTEGER NOT NULL,
		reason TEXT,
		-- init_order and trace hold JSON arrays; "order" is reserved.
		init_order JSON,
		trace JSON,
		duration_ms INTEGER NOT NULL,
		PRIMARY KEY (run_id, scenario)
	);

	CREATE INDEX IF NOT EXISTS idx_results_scenario ON scenario_results(scenario);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create history tables: %w", err)
	}
	return nil
}

// SaveRun stores a run and its scenario results in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, results []ScenarioResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, finished_at, origin, pass, scenario_count, pass_count, fail_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Origin,
		run.Pass, run.ScenarioCount, run.PassCount, run.FailCount)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, r := range results {
		orderJSON, err := marshalStrings(r.Order)
		if err != nil {
			return err
		}
		traceJSON, err := marshalStrings(r.Trace)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scenario_results (run_id, scenario, graph_hash, pass, reason, init_order, trace, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.RunID, r.Scenario, r.GraphHash, r.Pass, r.Reason,
			orderJSON, traceJSON, r.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", r.Scenario, err)
		}
	}

	return tx.Commit()
}

// GetRun returns one run, or nil when it does not exist.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, finished_at, origin, pass, scenario_count, pass_count, fail_count
		FROM runs WHERE run_id = ?
	`, runID).Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.Origin,
		&r.Pass, &r.ScenarioCount, &r.PassCount, &r.FailCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, origin, pass, scenario_count, pass_count, fail_count
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.Origin,
			&r.Pass, &r.ScenarioCount, &r.PassCount, &r.FailCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Results returns the scenario results of one run in scenario order.
func (s *Store) Results(ctx context.Context, runID string) ([]ScenarioResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, scenario, graph_hash, pass, reason, init_order, trace, duration_ms
		FROM scenario_results WHERE run_id = ? ORDER BY scenario
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// ScenarioHistory returns recent results for one scenario across runs,
// newest first.
func (s *Store) ScenarioHistory(ctx context.Context, scenario string, limit int) ([]ScenarioResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sr.run_id, sr.scenario, sr.graph_hash, sr.pass, sr.reason, sr.init_order, sr.trace, sr.duration_ms
		FROM scenario_results sr
		JOIN runs r ON r.run_id = sr.run_id
		WHERE sr.scenario = ?
		ORDER BY r.started_at DESC LIMIT ?
	`, scenario, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenario history: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// PruneBefore deletes runs that started before the cutoff. Results
// cascade. Returns the number of runs removed.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Summarize aggregates all stored runs.
func (s *Store) Summarize(ctx context.Context) (*Summary, error) {
	var sum Summary
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN pass THEN 1 ELSE 0 END), 0),
		       MAX(started_at)
		FROM runs
	`).Scan(&sum.TotalRuns, &sum.PassedRuns, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize runs: %w", err)
	}
	sum.FailedRuns = sum.TotalRuns - sum.PassedRuns
	if last.Valid {
		sum.LastRun = last.Time
	}
	return &sum, nil
}

func scanResults(rows *sql.Rows) ([]ScenarioResult, error) {
	var out []ScenarioResult
	for rows.Next() {
		var r ScenarioResult
		var hash, reason, orderJSON, traceJSON sql.NullString
		var durationMs int64
		if err := rows.Scan(&r.RunID, &r.Scenario, &hash, &r.Pass, &reason,
			&orderJSON, &traceJSON, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.GraphHash = hash.String
		r.Reason = reason.String
		r.Duration = time.Duration(durationMs) * time.Millisecond
		var err error
		if r.Order, err = unmarshalStrings(orderJSON); err != nil {
			return nil, err
		}
		if r.Trace, err = unmarshalStrings(traceJSON); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func marshalStrings(xs []string) (any, error) {
	if len(xs) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode string list: %w", err)
	}
	return string(b), nil
}

func unmarshalStrings(ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var xs []string
	if err := json.Unmarshal([]byte(ns.String), &xs); err != nil {
		return nil, fmt.Errorf("failed to decode string list: %w", err)
	}
	return xs, nil
}
