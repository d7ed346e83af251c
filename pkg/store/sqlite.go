// Package store persists propagation runs in SQLite: one row per run
// plus the full per-variable trajectories, so past runs can be listed
// and replayed without rebuilding the graph.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/econlab/ripple/pkg/engine"
)

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// NewStore initializes the SQLite database connection.
// It enables WAL mode for concurrency and durability.
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

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		scenario_name TEXT NOT NULL,
		digest TEXT,
		shock_target TEXT NOT NULL,
		magnitude REAL NOT NULL,
		periods INTEGER NOT NULL,
		dampening REAL NOT NULL,
		converged INTEGER NOT NULL,
		periods_run INTEGER NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario_name);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

	CREATE TABLE IF NOT EXISTS run_series (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		variable TEXT NOT NULL,
		period INTEGER NOT NULL,
		value REAL NOT NULL,
		uncertainty REAL NOT NULL,
		PRIMARY KEY (run_id, variable, period)
	);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create runs tables: %w", err)
	}

	return nil
}

// SaveRun persists a completed propagation run with its trajectories.
// If runID is empty a new UUID is assigned. Returns the run ID.
func (s *Store) SaveRun(ctx context.Context, runID, scenarioName, digest string, results *engine.Results) (string, error) {
	if runID == "" {
		runID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, scenario_name, digest, shock_target, magnitude, periods, dampening, converged, periods_run, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, scenarioName, digest,
		results.Shock.Target, results.Shock.Magnitude,
		results.Periods, results.Dampening,
		results.Converged, results.Meta.PeriodsRun,
		time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_series (run_id, variable, period, value, uncertainty)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare series insert: %w", err)
	}
	defer stmt.Close()

	for name, series := range results.TimeSeries {
		unc := results.UncertaintySeries[name]
		for t, v := range series {
			u := 0.0
			if t < len(unc) {
				u = unc[t]
			}
			if _, err := stmt.ExecContext(ctx, runID, name, t, v, u); err != nil {
				return "", fmt.Errorf("failed to insert series for %s: %w", name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// GetRun loads one run with its full trajectories.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, scenario_name, digest, shock_target, magnitude, periods, dampening, converged, periods_run, created_at
		FROM runs WHERE run_id = ?`, runID)

	var r Run
	err := row.Scan(&r.RunID, &r.ScenarioName, &r.Digest, &r.ShockTarget,
		&r.Magnitude, &r.Periods, &r.Dampening, &r.Converged, &r.PeriodsRun, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT variable, period, value, uncertainty
		FROM run_series WHERE run_id = ?
		ORDER BY variable, period`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	r.TimeSeries = make(map[string][]float64)
	r.UncertaintySeries = make(map[string][]float64)
	for rows.Next() {
		var name string
		var period int
		var v, u float64
		if err := rows.Scan(&name, &period, &v, &u); err != nil {
			return nil, fmt.Errorf("failed to scan series row: %w", err)
		}
		r.TimeSeries[name] = append(r.TimeSeries[name], v)
		r.UncertaintySeries[name] = append(r.UncertaintySeries[name], u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("series iteration failed: %w", err)
	}

	return &r, nil
}

// ListRuns returns run metadata matching the filter, newest first.
// Trajectories are not loaded; use GetRun for those.
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `
		SELECT run_id, scenario_name, digest, shock_target, magnitude, periods, dampening, converged, periods_run, created_at
		FROM runs WHERE 1=1`
	var args []any

	if filter.ScenarioName != "" {
		query += " AND scenario_name = ?"
		args = append(args, filter.ScenarioName)
	}
	if filter.ShockTarget != "" {
		query += " AND shock_target = ?"
		args = append(args, filter.ShockTarget)
	}
	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.ScenarioName, &r.Digest, &r.ShockTarget,
			&r.Magnitude, &r.Periods, &r.Dampening, &r.Converged, &r.PeriodsRun, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runs iteration failed: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and, via the foreign key cascade, its series.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
