package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reckon-dev/reckon/internal/model"
)

// RunRepo is the audit trail for batch passes.
type RunRepo struct {
	db *DB
}

// Start records a new run in the processing state and returns it.
func (r *RunRepo) Start(component string) (model.Run, error) {
	run := model.Run{
		ID:        uuid.NewString(),
		Component: component,
		Status:    model.RunProcessing,
		StartedAt: time.Now().UTC(),
	}
	if _, err := r.db.exec(`
		INSERT INTO runs (id, component, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Component, string(run.Status), run.StartedAt.Format(tsLayout)); err != nil {
		return model.Run{}, fmt.Errorf("starting %s run: %w", component, err)
	}
	return run, nil
}

// Commit marks a run committed with its summary line.
func (r *RunRepo) Commit(runID, summary string) error {
	return r.finish(runID, model.RunCommitted, summary)
}

// Abort marks a run aborted. Previously committed state is untouched; the
// summary carries the failure reason.
func (r *RunRepo) Abort(runID, summary string) error {
	return r.finish(runID, model.RunAborted, summary)
}

func (r *RunRepo) finish(runID string, status model.RunStatus, summary string) error {
	if _, err := r.db.exec(`
		UPDATE runs SET status = ?, finished_at = ?, summary = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(tsLayout), summary, runID); err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	return nil
}

// Last returns the most recent run per component.
func (r *RunRepo) Last() ([]model.Run, error) {
	rows, err := r.db.query(`
		SELECT id, component, status, started_at, finished_at, summary FROM runs
		WHERE started_at = (
			SELECT MAX(started_at) FROM runs r2 WHERE r2.component = runs.component
		)
		ORDER BY component`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var (
			run      model.Run
			status   string
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Component, &status, &started, &finished, &run.Summary); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.StartedAt, err = time.Parse(tsLayout, started); err != nil {
			return nil, fmt.Errorf("parsing run started_at: %w", err)
		}
		if finished.Valid {
			if run.FinishedAt, err = time.Parse(tsLayout, finished.String); err != nil {
				return nil, fmt.Errorf("parsing run finished_at: %w", err)
			}
		}
		run.Status = model.RunStatus(status)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
