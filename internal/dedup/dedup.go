// Package dedup finds near-duplicate records within one record set: the same
// account, amount, and calendar day ingested more than once. Duplicates are
// flagged, never deleted; every original row stays queryable for audit.
package dedup

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/reckon-dev/reckon/internal/model"
)

// ReasonSameDayAmount marks groups keyed by (account, amount, day).
const ReasonSameDayAmount = "same-day-amount"

// Groups partitions records by (account_ref, amount, day) and returns a
// DuplicateGroup for every key holding more than one record. The canonical
// member is the earliest created_at, tie-broken by lowest external_id, so
// regeneration from unchanged input always picks the same record.
// Quarantined and superseded records never participate.
func Groups(records []model.TransactionRecord) []model.DuplicateGroup {
	byKey := make(map[string][]model.TransactionRecord)
	var keyOrder []string
	for _, r := range records {
		if r.Status != "" && r.Status != model.RecordActive {
			continue
		}
		k := groupKey(r)
		if _, seen := byKey[k]; !seen {
			keyOrder = append(keyOrder, k)
		}
		byKey[k] = append(byKey[k], r)
	}
	sort.Strings(keyOrder)

	var groups []model.DuplicateGroup
	for _, k := range keyOrder {
		members := byKey[k]
		if len(members) < 2 {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool {
			if !members[i].CreatedAt.Equal(members[j].CreatedAt) {
				return members[i].CreatedAt.Before(members[j].CreatedAt)
			}
			return members[i].ExternalID < members[j].ExternalID
		})

		g := model.DuplicateGroup{
			Canonical:  members[0].ID,
			ReasonCode: ReasonSameDayAmount,
		}
		for _, m := range members {
			g.Members = append(g.Members, m.ID)
		}
		groups = append(groups, g)
	}
	return groups
}

// CanonicalOnly filters a record set down to one record per real-world
// event: non-canonical duplicate-group members are dropped, everything else
// passes through. Aggregations over the result count each event exactly once.
func CanonicalOnly(records []model.TransactionRecord, groups []model.DuplicateGroup) []model.TransactionRecord {
	excluded := make(map[int64]bool)
	for _, g := range groups {
		for _, id := range g.Members {
			if id != g.Canonical {
				excluded[id] = true
			}
		}
	}

	out := make([]model.TransactionRecord, 0, len(records))
	for _, r := range records {
		if !excluded[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// Total sums amounts with one-entry-per-group semantics.
func Total(records []model.TransactionRecord, groups []model.DuplicateGroup) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range CanonicalOnly(records, groups) {
		sum = sum.Add(r.Amount)
	}
	return sum
}

func groupKey(r model.TransactionRecord) string {
	return fmt.Sprintf("%s|%s|%s", r.AccountRef, r.Amount.StringFixed(2), r.Day().Format("2006-01-02"))
}
