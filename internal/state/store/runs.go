package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrRunNotFound = errors.New("run not found")

// Fixed-width UTC timestamps so started_at sorts and compares as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Run is the archived summary of one finished workflow run.
type Run struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"sessionId"`
	Mode        string            `json:"mode"`
	Intent      string            `json:"intent,omitempty"`
	Prompt      string            `json:"prompt"`
	FinalResult string            `json:"finalResult"`
	Status      string            `json:"status"`
	StepsTotal  int               `json:"stepsTotal"`
	StepsFailed int               `json:"stepsFailed"`
	Outputs     map[string]string `json:"outputs"`
	StartedAt   time.Time         `json:"startedAt"`
	Duration    time.Duration     `json:"duration"`
}

// RunStatus derives the archive status from step counts.
func RunStatus(total, failed int) string {
	switch {
	case total > 0 && failed == 0:
		return StatusCompleted
	case failed < total:
		return StatusPartial
	default:
		return StatusFailed
	}
}

// RunStore reads and writes archived runs.
type RunStore struct {
	db *DB
}

func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// SaveRun inserts or replaces a run.
func (s *RunStore) SaveRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		return fmt.Errorf("save run: id is required")
	}
	outputs, err := json.Marshal(r.Outputs)
	if err != nil {
		return fmt.Errorf("save run %s: marshal outputs: %w", r.ID, err)
	}
	if r.Outputs == nil {
		outputs = []byte("{}")
	}
	_, err = s.db.SQLDB().ExecContext(ctx, s.db.rebind(
		`INSERT INTO runs (id, session_id, mode, intent, prompt, final_result, status, steps_total, steps_failed, outputs, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   final_result = excluded.final_result,
		   status = excluded.status,
		   steps_total = excluded.steps_total,
		   steps_failed = excluded.steps_failed,
		   outputs = excluded.outputs,
		   duration_ms = excluded.duration_ms`),
		r.ID, r.SessionID, r.Mode, r.Intent, r.Prompt, r.FinalResult, r.Status,
		r.StepsTotal, r.StepsFailed, string(outputs),
		r.StartedAt.UTC().Format(timeLayout), r.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}

const runColumns = `id, session_id, mode, intent, prompt, final_result, status, steps_total, steps_failed, outputs, started_at, duration_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r          Run
		outputs    string
		startedAt  string
		durationMS int64
	)
	err := row.Scan(&r.ID, &r.SessionID, &r.Mode, &r.Intent, &r.Prompt, &r.FinalResult, &r.Status,
		&r.StepsTotal, &r.StepsFailed, &outputs, &startedAt, &durationMS)
	if err != nil {
		return Run{}, err
	}
	if outputs != "" {
		if err := json.Unmarshal([]byte(outputs), &r.Outputs); err != nil {
			return Run{}, fmt.Errorf("run %s: outputs: %w", r.ID, err)
		}
	}
	r.StartedAt, _ = time.Parse(timeLayout, startedAt)
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return r, nil
}

// GetRun loads a run by id.
func (s *RunStore) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.SQLDB().QueryRowContext(ctx, s.db.rebind(`SELECT `+runColumns+` FROM runs WHERE id = ?`), id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means 50.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.SQLDB().QueryContext(ctx,
		s.db.rebind(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// PruneBefore deletes runs started before cutoff and reports how many went.
func (s *RunStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.SQLDB().ExecContext(ctx, s.db.rebind(`DELETE FROM runs WHERE started_at < ?`),
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
