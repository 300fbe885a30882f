package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchRule identifies which matcher phase produced a link.
type MatchRule string

const (
	RuleExactKey    MatchRule = "exact-key"
	RuleExactAmount MatchRule = "exact-amount"
	RuleFuzzyAmount MatchRule = "fuzzy-amount"
)

// LinkStatus represents the review state of a match link.
type LinkStatus string

const (
	LinkProposed  LinkStatus = "proposed"
	LinkConfirmed LinkStatus = "confirmed"
	LinkRejected  LinkStatus = "rejected"
)

// MatchLink ties a record in set A to its counterpart in set B.
// Within one matcher run a record holds at most one confirmed link.
type MatchLink struct {
	ID         int64
	RunID      string
	RecordA    int64
	RecordB    int64
	Confidence decimal.Decimal // 0.00 - 1.00
	Rule       MatchRule
	Status     LinkStatus
	CreatedAt  time.Time
}

// DuplicateGroup flags near-identical records as one real-world event.
// Members stay in storage and remain queryable; only the canonical member
// counts toward aggregates.
type DuplicateGroup struct {
	ID         int64
	Canonical  int64
	Members    []int64
	ReasonCode string
}
