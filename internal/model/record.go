package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordStatus represents the lifecycle state of a transaction record.
type RecordStatus string

const (
	// RecordActive is a normal, matchable record.
	RecordActive RecordStatus = "active"
	// RecordQuarantined failed canonicalization and awaits manual review.
	// Quarantined records are excluded from matching and aggregation.
	RecordQuarantined RecordStatus = "quarantined"
	// RecordSuperseded was replaced by a newer copy from a re-sync.
	RecordSuperseded RecordStatus = "superseded"
)

// TransactionRecord is a single financial event from one source system.
// Records are immutable once ingested: a re-sync supersedes, never mutates.
type TransactionRecord struct {
	ID                int64
	SourceSystem      string
	ExternalID        string
	OccurredOn        time.Time
	Amount            decimal.Decimal // positive = inflow
	CounterpartyText  string
	CounterpartyCanon string
	AccountRef        string
	RawPayload        string
	Status            RecordStatus
	QuarantineReason  string
	CreatedAt         time.Time
}

// Day returns the record's calendar day truncated to midnight UTC.
func (r TransactionRecord) Day() time.Time {
	y, m, d := r.OccurredOn.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
