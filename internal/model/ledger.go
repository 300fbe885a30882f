package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType classifies ledger entries. Charges sort before payments on the
// same day.
type EntryType string

const (
	EntryCharge  EntryType = "charge"
	EntryPayment EntryType = "payment"
)

// LedgerEntry is one row of an entity's running-balance ledger.
type LedgerEntry struct {
	EntityRef      string
	Date           time.Time
	Type           EntryType
	Description    string
	Amount         decimal.Decimal
	RunningBalance decimal.Decimal
	SourceRef      string
}

// Watermark marks the newest externally-sourced change already applied for
// one entity type. Advanced only after a committed batch.
type Watermark struct {
	EntityType  string
	LastApplied time.Time
}
