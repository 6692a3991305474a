// Package analytics persists per-step execution history in SQLite and
// computes aggregate metrics (success rate, average duration, recent
// runs) on read.
package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"armature/internal/logging"
)

const (
	// maxStoredRuns caps history per step so the database stays bounded.
	maxStoredRuns = 200
	// recentRunsWindow is how many trailing runs metrics carry inline.
	recentRunsWindow = 20
)

const schema = `
CREATE TABLE IF NOT EXISTS step_runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	assembly_id TEXT    NOT NULL,
	step_id     TEXT    NOT NULL,
	success     INTEGER NOT NULL,
	duration_ms REAL    NOT NULL,
	attempt     INTEGER NOT NULL DEFAULT 1,
	recorded_at REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_step_runs_step ON step_runs(assembly_id, step_id, id);
`

// RunEntry is one recorded step attempt.
type RunEntry struct {
	Success    bool    `json:"success"`
	DurationMs float64 `json:"durationMs"`
	Timestamp  float64 `json:"timestamp"`
	Attempt    int     `json:"attempt"`
}

// StepMetrics is the aggregate view of one step's history. AvgDurationMs
// averages successful attempts only; failed attempts say nothing about
// how long the step takes when it works.
type StepMetrics struct {
	StepID        string     `json:"stepId"`
	SuccessRate   float64    `json:"successRate"`
	AvgDurationMs float64    `json:"avgDurationMs"`
	TotalAttempts int        `json:"totalAttempts"`
	DemoCount     int        `json:"demoCount"`
	RecentRuns    []RunEntry `json:"recentRuns"`
}

// Store is the SQLite-backed analytics store. Safe for concurrent use;
// database/sql serializes access.
type Store struct {
	db      *sql.DB
	maxRuns int
}

// Option configures a Store.
type Option func(*Store)

// WithMaxStoredRuns overrides the per-step history cap.
func WithMaxStoredRuns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRuns = n
		}
	}
}

// Open creates or opens the analytics database, creating parent
// directories and the schema as needed.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create analytics dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create analytics schema: %w", err)
	}
	st := &Store{db: db, maxRuns: maxStoredRuns}
	for _, opt := range opts {
		opt(st)
	}
	logging.Analytics("store opened at %s", path)
	return st, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordStepResult appends one attempt and trims the step's history to
// the storage cap.
func (s *Store) RecordStepResult(assemblyID, stepID string, success bool, durationMs float64, attempt int) error {
	now := float64(time.Now().UnixNano()) / 1e9
	_, err := s.db.Exec(
		`INSERT INTO step_runs (assembly_id, step_id, success, duration_ms, attempt, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		assemblyID, stepID, boolToInt(success), durationMs, attempt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to record step result: %w", err)
	}

	_, err = s.db.Exec(
		`DELETE FROM step_runs WHERE assembly_id = ? AND step_id = ? AND id NOT IN (
			SELECT id FROM step_runs WHERE assembly_id = ? AND step_id = ?
			ORDER BY id DESC LIMIT ?)`,
		assemblyID, stepID, assemblyID, stepID, s.maxRuns,
	)
	if err != nil {
		return fmt.Errorf("failed to trim step history: %w", err)
	}

	logging.Analytics("recorded run: assembly=%s step=%s success=%t duration=%.0fms attempt=%d",
		assemblyID, stepID, success, durationMs, attempt)
	return nil
}

// GetStepMetrics computes metrics for every step of an assembly that has
// recorded data, ordered by step ID.
func (s *Store) GetStepMetrics(assemblyID string) ([]StepMetrics, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT step_id FROM step_runs WHERE assembly_id = ? ORDER BY step_id`,
		assemblyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	var stepIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		stepIDs = append(stepIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.GetStepMetricsFor(assemblyID, stepIDs)
}

// GetStepMetricsFor computes metrics for the given steps in order,
// returning zero-valued metrics for steps with no recorded data.
func (s *Store) GetStepMetricsFor(assemblyID string, stepIDs []string) ([]StepMetrics, error) {
	metrics := make([]StepMetrics, 0, len(stepIDs))
	for _, stepID := range stepIDs {
		runs, err := s.stepRuns(assemblyID, stepID)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, computeMetrics(stepID, runs))
	}
	return metrics, nil
}

// GetStepHistory returns up to limit most recent runs for one step,
// oldest first.
func (s *Store) GetStepHistory(assemblyID, stepID string, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	runs, err := s.stepRuns(assemblyID, stepID)
	if err != nil {
		return nil, err
	}
	if len(runs) > limit {
		runs = runs[len(runs)-limit:]
	}
	return runs, nil
}

func (s *Store) stepRuns(assemblyID, stepID string) ([]RunEntry, error) {
	rows, err := s.db.Query(
		`SELECT success, duration_ms, recorded_at, attempt FROM step_runs
		 WHERE assembly_id = ? AND step_id = ? ORDER BY id`,
		assemblyID, stepID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read step runs: %w", err)
	}
	defer rows.Close()

	var runs []RunEntry
	for rows.Next() {
		var e RunEntry
		var success int
		if err := rows.Scan(&success, &e.DurationMs, &e.Timestamp, &e.Attempt); err != nil {
			return nil, err
		}
		e.Success = success != 0
		runs = append(runs, e)
	}
	return runs, rows.Err()
}

func computeMetrics(stepID string, runs []RunEntry) StepMetrics {
	total := len(runs)
	successes := 0
	var durationSum float64
	for _, r := range runs {
		if r.Success {
			successes++
			durationSum += r.DurationMs
		}
	}

	rate := 0.0
	if total > 0 {
		rate = float64(successes) / float64(total)
	}
	avg := 0.0
	if successes > 0 {
		avg = durationSum / float64(successes)
	}

	recent := runs
	if len(recent) > recentRunsWindow {
		recent = recent[len(recent)-recentRunsWindow:]
	}
	if recent == nil {
		recent = []RunEntry{}
	}

	return StepMetrics{
		StepID:        stepID,
		SuccessRate:   round(rate, 4),
		AvgDurationMs: round(avg, 1),
		TotalAttempts: total,
		RecentRuns:    recent,
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
