package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/reckon-dev/reckon/internal/model"
)

// Store bundles the repositories over one database connection. Built once
// per process and passed by reference to every component.
type Store struct {
	db *DB

	Records    *RecordRepo
	Links      *LinkRepo
	Groups     *GroupRepo
	Ledgers    *LedgerRepo
	Watermarks *WatermarkRepo
	Runs       *RunRepo
}

// New creates a Store over an open database.
func New(db *DB) *Store {
	return &Store{
		db:         db,
		Records:    &RecordRepo{db: db},
		Links:      &LinkRepo{db: db},
		Groups:     &GroupRepo{db: db},
		Ledgers:    &LedgerRepo{db: db},
		Watermarks: &WatermarkRepo{db: db},
		Runs:       &RunRepo{db: db},
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BatchResult summarizes what one sync batch wrote.
type BatchResult struct {
	Inserted   int
	Superseded int
	Unchanged  int
}

// Writes reports whether the batch touched any rows.
func (b BatchResult) Writes() int {
	return b.Inserted + b.Superseded
}

// Watermark returns the sync watermark for an entity type.
func (s *Store) Watermark(entityType string) (time.Time, error) {
	return s.Watermarks.Get(entityType)
}

// ApplyBatch upserts a sync batch and advances the watermark in one
// transaction. Either everything lands and the watermark moves, or nothing
// does; there is no partial-commit state.
func (s *Store) ApplyBatch(entityType string, records []model.TransactionRecord, watermark time.Time) (BatchResult, error) {
	var result BatchResult
	err := s.db.Transaction(func(tx *sql.Tx) error {
		for _, rec := range records {
			change, err := s.Records.UpsertTx(tx, rec)
			if err != nil {
				return err
			}
			switch change {
			case ChangeInserted:
				result.Inserted++
			case ChangeSuperseded:
				result.Superseded++
			default:
				result.Unchanged++
			}
		}
		return s.Watermarks.SetTx(tx, entityType, watermark)
	})
	if err != nil {
		return BatchResult{}, fmt.Errorf("applying %s batch: %w", entityType, err)
	}
	return result, nil
}
