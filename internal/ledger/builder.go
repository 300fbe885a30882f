// Package ledger merges charge and payment streams for one entity into a
// chronological running-balance ledger. Ledgers are always rebuilt wholesale;
// there is no incremental patching.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reckon-dev/reckon/internal/model"
)

// InvariantError reports a ledger whose stored state disagrees with the
// recomputed running balance, or an input that cannot produce a valid
// ledger. It aborts only the affected entity's unit of work.
type InvariantError struct {
	EntityRef string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("ledger invariant [%s]: %s", e.EntityRef, e.Detail)
}

// Item is one charge or payment event feeding the ledger.
type Item struct {
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	SourceRef   string
}

// Build merges charges and payments into an ordered ledger with running
// balances. On the same day charges apply before payments. Item amounts
// must be non-negative; the fold adds charges and subtracts payments.
// Build is pure: calling it twice with the same input yields the same
// entries, which is what makes wholesale rebuilds idempotent.
func Build(entityRef string, charges, payments []Item) ([]model.LedgerEntry, error) {
	entries := make([]model.LedgerEntry, 0, len(charges)+len(payments))
	for _, c := range charges {
		if c.Amount.IsNegative() {
			return nil, &InvariantError{EntityRef: entityRef, Detail: fmt.Sprintf("negative charge %s on %s", c.Amount, c.Date.Format("2006-01-02"))}
		}
		entries = append(entries, entry(entityRef, c, model.EntryCharge))
	}
	for _, p := range payments {
		if p.Amount.IsNegative() {
			return nil, &InvariantError{EntityRef: entityRef, Detail: fmt.Sprintf("negative payment %s on %s", p.Amount, p.Date.Format("2006-01-02"))}
		}
		entries = append(entries, entry(entityRef, p, model.EntryPayment))
	}

	// Stable merge: date ascending, charge before payment on ties. Stability
	// preserves each input stream's own ordering within a day.
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return typePriority(entries[i].Type) < typePriority(entries[j].Type)
	})

	balance := decimal.Zero
	for i := range entries {
		if entries[i].Type == model.EntryCharge {
			balance = balance.Add(entries[i].Amount)
		} else {
			balance = balance.Sub(entries[i].Amount)
		}
		entries[i].RunningBalance = balance
	}
	return entries, nil
}

// Verify recomputes the running balance of an ordered ledger and returns an
// InvariantError on the first mismatch.
func Verify(entityRef string, entries []model.LedgerEntry) error {
	balance := decimal.Zero
	for i, e := range entries {
		if e.Type == model.EntryCharge {
			balance = balance.Add(e.Amount)
		} else {
			balance = balance.Sub(e.Amount)
		}
		if !e.RunningBalance.Equal(balance) {
			return &InvariantError{
				EntityRef: entityRef,
				Detail: fmt.Sprintf("entry %d (%s): stored balance %s, recomputed %s",
					i, e.Date.Format("2006-01-02"), e.RunningBalance, balance),
			}
		}
	}
	return nil
}

func entry(entityRef string, it Item, typ model.EntryType) model.LedgerEntry {
	return model.LedgerEntry{
		EntityRef:   entityRef,
		Date:        it.Date,
		Type:        typ,
		Description: it.Description,
		Amount:      it.Amount,
		SourceRef:   it.SourceRef,
	}
}

func typePriority(t model.EntryType) int {
	if t == model.EntryCharge {
		return 0
	}
	return 1
}
