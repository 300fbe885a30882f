// Package verify is a read-only audit pass. It recomputes aggregates and
// balances, compares them against stored fields, and reports discrepancies.
// It never writes to primary data.
package verify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reckon-dev/reckon/internal/model"
)

// Reader is the read-only slice of the store the verifier consumes.
type Reader interface {
	Active(from, to time.Time) ([]model.TransactionRecord, error)
	Groups() ([]model.DuplicateGroup, error)
	ConfirmedLinks() ([]model.MatchLink, error)
	LedgerEntities() ([]string, error)
	LedgerEntries(entityRef string) ([]model.LedgerEntry, error)
}

// Options tunes the verifier.
type Options struct {
	// TopN caps the violation samples kept per check (default 10).
	TopN int
	// PaymentSources are source systems whose records are expected to hold
	// a confirmed match link; records without one are orphan payments.
	PaymentSources []string
	// NonNegativeSources are source systems where a negative amount is
	// anomalous.
	NonNegativeSources []string
}

// Violation is one discrepancy, with a magnitude used for worst-first
// ordering.
type Violation struct {
	Ref       string
	Detail    string
	Magnitude decimal.Decimal
}

// Check is the outcome of one audit check: total count plus the top-N worst
// samples.
type Check struct {
	Name    string
	Count   int
	Samples []Violation
}

// Report is the full audit outcome, consumable by humans or tooling.
type Report struct {
	From   time.Time
	To     time.Time
	Checks []Check
}

// Total returns the violation count across all checks.
func (r Report) Total() int {
	n := 0
	for _, c := range r.Checks {
		n += c.Count
	}
	return n
}

// Human renders the report for review.
func (r Report) Human() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Discrepancies: %d\n", r.Total())
	for _, c := range r.Checks {
		fmt.Fprintf(&b, "  %s: %d\n", c.Name, c.Count)
		for _, v := range c.Samples {
			fmt.Fprintf(&b, "    %s: %s\n", v.Ref, v.Detail)
		}
	}
	return b.String()
}

// Verifier runs the audit checks.
type Verifier struct {
	reader Reader
	opts   Options
}

// New creates a Verifier.
func New(reader Reader, opts Options) *Verifier {
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	return &Verifier{reader: reader, opts: opts}
}

// Run executes every check over the date range. Zero bounds are open.
func (v *Verifier) Run(from, to time.Time) (Report, error) {
	report := Report{From: from, To: to}

	records, err := v.reader.Active(from, to)
	if err != nil {
		return report, fmt.Errorf("loading records: %w", err)
	}
	groups, err := v.reader.Groups()
	if err != nil {
		return report, fmt.Errorf("loading duplicate groups: %w", err)
	}
	links, err := v.reader.ConfirmedLinks()
	if err != nil {
		return report, fmt.Errorf("loading links: %w", err)
	}

	report.Checks = append(report.Checks, v.cap(v.unflaggedDuplicates(records, groups)))
	report.Checks = append(report.Checks, v.cap(v.anomalousSigns(records)))
	report.Checks = append(report.Checks, v.cap(v.orphanPayments(records, links)))

	aggregates, balances, err := v.ledgerChecks()
	if err != nil {
		return report, err
	}
	report.Checks = append(report.Checks, v.cap(aggregates), v.cap(balances))
	return report, nil
}

// unflaggedDuplicates flags same-account/amount/day record pairs not covered
// by any duplicate group.
func (v *Verifier) unflaggedDuplicates(records []model.TransactionRecord, groups []model.DuplicateGroup) Check {
	flagged := make(map[int64]bool)
	for _, g := range groups {
		for _, id := range g.Members {
			flagged[id] = true
		}
	}

	byKey := make(map[string][]model.TransactionRecord)
	for _, r := range records {
		k := fmt.Sprintf("%s|%s|%s", r.AccountRef, r.Amount.StringFixed(2), r.Day().Format("2006-01-02"))
		byKey[k] = append(byKey[k], r)
	}

	check := Check{Name: "unflagged-duplicates"}
	for _, members := range byKey {
		if len(members) < 2 {
			continue
		}
		unflagged := 0
		for _, m := range members {
			if !flagged[m.ID] {
				unflagged++
			}
		}
		if unflagged < 2 {
			continue
		}
		for _, m := range members[1:] {
			if flagged[m.ID] {
				continue
			}
			check.Count++
			check.Samples = append(check.Samples, Violation{
				Ref:       recordRef(m),
				Detail:    fmt.Sprintf("duplicates %s on %s for %s", recordRef(members[0]), m.Day().Format("2006-01-02"), m.Amount.StringFixed(2)),
				Magnitude: m.Amount.Abs(),
			})
		}
	}
	return check
}

func (v *Verifier) anomalousSigns(records []model.TransactionRecord) Check {
	nonNegative := make(map[string]bool)
	for _, s := range v.opts.NonNegativeSources {
		nonNegative[s] = true
	}

	check := Check{Name: "anomalous-sign"}
	for _, r := range records {
		if nonNegative[r.SourceSystem] && r.Amount.IsNegative() {
			check.Count++
			check.Samples = append(check.Samples, Violation{
				Ref:       recordRef(r),
				Detail:    fmt.Sprintf("negative amount %s in non-negative source %s", r.Amount.StringFixed(2), r.SourceSystem),
				Magnitude: r.Amount.Abs(),
			})
		}
	}
	return check
}

func (v *Verifier) orphanPayments(records []model.TransactionRecord, links []model.MatchLink) Check {
	linked := make(map[int64]bool)
	for _, l := range links {
		linked[l.RecordA] = true
		linked[l.RecordB] = true
	}
	payments := make(map[string]bool)
	for _, s := range v.opts.PaymentSources {
		payments[s] = true
	}

	check := Check{Name: "orphan-payments"}
	for _, r := range records {
		if payments[r.SourceSystem] && !linked[r.ID] {
			check.Count++
			check.Samples = append(check.Samples, Violation{
				Ref:       recordRef(r),
				Detail:    fmt.Sprintf("payment %s has no confirmed match", r.Amount.StringFixed(2)),
				Magnitude: r.Amount.Abs(),
			})
		}
	}
	return check
}

// ledgerChecks recomputes each ledger independently: the final balance
// against the sum of its components, and every stored running total against
// the fold.
func (v *Verifier) ledgerChecks() (aggregates, balances Check, err error) {
	aggregates = Check{Name: "aggregate-mismatch"}
	balances = Check{Name: "running-balance-mismatch"}

	entities, err := v.reader.LedgerEntities()
	if err != nil {
		return aggregates, balances, fmt.Errorf("loading ledger entities: %w", err)
	}

	for _, ref := range entities {
		entries, err := v.reader.LedgerEntries(ref)
		if err != nil {
			return aggregates, balances, fmt.Errorf("loading ledger %s: %w", ref, err)
		}
		if len(entries) == 0 {
			continue
		}

		net := decimal.Zero
		running := decimal.Zero
		balanceBroken := false
		for i, e := range entries {
			if e.Type == model.EntryCharge {
				net = net.Add(e.Amount)
				running = running.Add(e.Amount)
			} else {
				net = net.Sub(e.Amount)
				running = running.Sub(e.Amount)
			}
			if !balanceBroken && !e.RunningBalance.Equal(running) {
				balanceBroken = true
				diff := e.RunningBalance.Sub(running).Abs()
				balances.Count++
				balances.Samples = append(balances.Samples, Violation{
					Ref:       ref,
					Detail:    fmt.Sprintf("entry %d stored %s, recomputed %s", i, e.RunningBalance.StringFixed(2), running.StringFixed(2)),
					Magnitude: diff,
				})
			}
		}

		final := entries[len(entries)-1].RunningBalance
		if !final.Equal(net) {
			diff := final.Sub(net).Abs()
			aggregates.Count++
			aggregates.Samples = append(aggregates.Samples, Violation{
				Ref:       ref,
				Detail:    fmt.Sprintf("final balance %s, component sum %s", final.StringFixed(2), net.StringFixed(2)),
				Magnitude: diff,
			})
		}
	}
	return aggregates, balances, nil
}

// cap sorts samples worst-first and trims to TopN.
func (v *Verifier) cap(c Check) Check {
	sort.SliceStable(c.Samples, func(i, j int) bool {
		if !c.Samples[i].Magnitude.Equal(c.Samples[j].Magnitude) {
			return c.Samples[i].Magnitude.GreaterThan(c.Samples[j].Magnitude)
		}
		return c.Samples[i].Ref < c.Samples[j].Ref
	})
	if len(c.Samples) > v.opts.TopN {
		c.Samples = c.Samples[:v.opts.TopN]
	}
	return c
}

func recordRef(r model.TransactionRecord) string {
	return r.SourceSystem + "/" + r.ExternalID
}
