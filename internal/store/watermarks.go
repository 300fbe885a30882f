package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/reckon-dev/reckon/internal/model"
)

// WatermarkRepo persists one sync checkpoint per entity type. Watermarks are
// owned exclusively by the sync orchestrator and only ever move forward.
type WatermarkRepo struct {
	db *DB
}

// Get returns the watermark for an entity type, or the zero time when no
// sync has run yet.
func (w *WatermarkRepo) Get(entityType string) (time.Time, error) {
	var raw string
	err := w.db.queryRow(`
		SELECT last_applied FROM watermarks WHERE entity_type = ?`, entityType).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading watermark %s: %w", entityType, err)
	}

	ts, err := time.Parse(tsLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing watermark %s: %w", entityType, err)
	}
	return ts, nil
}

// All returns every stored watermark.
func (w *WatermarkRepo) All() ([]model.Watermark, error) {
	rows, err := w.db.query(`SELECT entity_type, last_applied FROM watermarks ORDER BY entity_type`)
	if err != nil {
		return nil, fmt.Errorf("querying watermarks: %w", err)
	}
	defer rows.Close()

	var marks []model.Watermark
	for rows.Next() {
		var wm model.Watermark
		var raw string
		if err := rows.Scan(&wm.EntityType, &raw); err != nil {
			return nil, fmt.Errorf("scanning watermark: %w", err)
		}
		if wm.LastApplied, err = time.Parse(tsLayout, raw); err != nil {
			return nil, fmt.Errorf("parsing watermark %s: %w", wm.EntityType, err)
		}
		marks = append(marks, wm)
	}
	return marks, rows.Err()
}

// SetTx advances the watermark inside the batch's transaction, so a failed
// batch leaves it untouched. A value at or behind the current watermark is
// rejected: watermarks are monotonically non-decreasing.
func (w *WatermarkRepo) SetTx(tx *sql.Tx, entityType string, ts time.Time) error {
	var current string
	err := tx.QueryRow(`
		SELECT last_applied FROM watermarks WHERE entity_type = ?`, entityType).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("reading watermark %s: %w", entityType, err)
	}
	if err == nil {
		cur, perr := time.Parse(tsLayout, current)
		if perr != nil {
			return fmt.Errorf("parsing watermark %s: %w", entityType, perr)
		}
		if ts.Before(cur) {
			return fmt.Errorf("watermark %s would move backwards (%s -> %s)", entityType, cur.Format(tsLayout), ts.Format(tsLayout))
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO watermarks (entity_type, last_applied) VALUES (?, ?)
		ON CONFLICT(entity_type) DO UPDATE SET last_applied = excluded.last_applied`,
		entityType, ts.Format(tsLayout)); err != nil {
		return fmt.Errorf("writing watermark %s: %w", entityType, err)
	}
	return nil
}
