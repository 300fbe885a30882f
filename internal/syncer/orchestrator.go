// Package syncer incrementally pulls new-or-changed rows from a legacy
// source into local staging. Each entity type has one watermark; a run
// fetches strictly past it, upserts by natural key, and advances the
// watermark in the same transaction. Re-running with no new data writes
// nothing.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reckon-dev/reckon/internal/canon"
	"github.com/reckon-dev/reckon/internal/legacy"
	"github.com/reckon-dev/reckon/internal/model"
	"github.com/reckon-dev/reckon/internal/store"
)

// Staging is the slice of the store the orchestrator writes through.
type Staging interface {
	Watermark(entityType string) (time.Time, error)
	ApplyBatch(entityType string, records []model.TransactionRecord, watermark time.Time) (store.BatchResult, error)
}

// Report summarizes one sync run.
type Report struct {
	EntityType  string
	Skipped     bool
	Fetched     int
	Inserted    int
	Superseded  int
	Unchanged   int
	Quarantined int
	Watermark   time.Time
}

// Summary renders the human-readable counts line.
func (r Report) Summary() string {
	if r.Skipped {
		return fmt.Sprintf("entity=%s skipped", r.EntityType)
	}
	return fmt.Sprintf("entity=%s fetched=%d inserted=%d superseded=%d unchanged=%d quarantined=%d",
		r.EntityType, r.Fetched, r.Inserted, r.Superseded, r.Unchanged, r.Quarantined)
}

// Orchestrator drives watermark-bounded sync runs. It is the only writer of
// staging rows and watermarks.
type Orchestrator struct {
	source  legacy.Source
	staging Staging
}

// New creates an Orchestrator.
func New(source legacy.Source, staging Staging) *Orchestrator {
	return &Orchestrator{source: source, staging: staging}
}

// Sync runs one batch for an entity type. An unreachable source skips the
// run entirely (watermark untouched, safe to retry); a failed batch also
// leaves the watermark where it was, so the next run retries the window.
// Rows that fail canonicalization are staged quarantined, not dropped, and
// the batch continues.
func (o *Orchestrator) Sync(ctx context.Context, entityType string) (Report, error) {
	report := Report{EntityType: entityType}

	wm, err := o.staging.Watermark(entityType)
	if err != nil {
		return report, fmt.Errorf("reading %s watermark: %w", entityType, err)
	}
	report.Watermark = wm

	cursor, err := o.source.FetchSince(ctx, entityType, wm)
	if err != nil {
		// An unreachable source is not a failure of this run: skip it,
		// leave the watermark, and let other entity types proceed.
		if errors.Is(err, legacy.ErrSourceUnavailable) {
			report.Skipped = true
			return report, nil
		}
		return report, fmt.Errorf("fetching %s since %s: %w", entityType, wm.Format(time.RFC3339), err)
	}

	var (
		records []model.TransactionRecord
		newWM   = wm
	)
	for {
		raw, ok, err := cursor.Next()
		if err != nil {
			return report, fmt.Errorf("draining %s cursor: %w", entityType, err)
		}
		if !ok {
			break
		}
		report.Fetched++

		rec := o.canonicalize(raw)
		if rec.Status == model.RecordQuarantined {
			report.Quarantined++
		}
		records = append(records, rec)

		// Source orders ascending, so this only ever moves forward.
		if raw.LastModified.After(newWM) {
			newWM = raw.LastModified
		}
	}

	if len(records) == 0 {
		return report, nil
	}

	result, err := o.staging.ApplyBatch(entityType, records, newWM)
	if err != nil {
		return report, err
	}

	report.Inserted = result.Inserted
	report.Superseded = result.Superseded
	report.Unchanged = result.Unchanged
	report.Watermark = newWM
	return report, nil
}

// canonicalize builds a staging record from a raw legacy row. Parse failures
// quarantine the record with the failure reason; the raw payload is always
// kept for replay.
func (o *Orchestrator) canonicalize(raw legacy.RawRecord) model.TransactionRecord {
	rec := model.TransactionRecord{
		SourceSystem:      raw.EntityType,
		ExternalID:        raw.NaturalKey,
		CounterpartyText:  raw.Fields["counterparty"],
		CounterpartyCanon: canon.NormalizeVendor(raw.Fields["counterparty"]),
		AccountRef:        raw.Fields["account_ref"],
		RawPayload:        raw.Payload,
		Status:            model.RecordActive,
	}

	var quarantine []string

	occurred, err := canon.ParseDate(raw.Fields["occurred_on"], raw.LastModified.Year())
	if err != nil {
		quarantine = append(quarantine, err.Error())
		// Fall back to the modification day so the row stays sortable.
		occurred = raw.LastModified.UTC().Truncate(24 * time.Hour)
	}
	rec.OccurredOn = occurred

	amount, err := canon.ParseAmount(raw.Fields["amount"])
	if err != nil {
		quarantine = append(quarantine, err.Error())
		amount = decimal.Zero
	}
	rec.Amount = amount

	if len(quarantine) > 0 {
		rec.Status = model.RecordQuarantined
		rec.QuarantineReason = joinReasons(quarantine)
	}
	return rec
}

func joinReasons(reasons []string) string {
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}
