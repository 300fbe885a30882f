package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reckon-dev/reckon/internal/model"
)

// LinkRepo provides typed access to match links.
type LinkRepo struct {
	db *DB
}

// PairKey identifies the matching scope between two source systems. The
// names are ordered so a reversed invocation replaces the same scope
// instead of accreting a second set of links for the pair.
func PairKey(sourceA, sourceB string) string {
	if sourceB < sourceA {
		sourceA, sourceB = sourceB, sourceA
	}
	return sourceA + "|" + sourceB
}

// ReplacePair atomically replaces every link for the (sourceA, sourceB)
// scope with the given set. Matcher reruns regenerate, they never accrete.
func (l *LinkRepo) ReplacePair(runID, sourceA, sourceB string, links []model.MatchLink) error {
	pair := PairKey(sourceA, sourceB)
	now := time.Now().UTC().Format(tsLayout)

	return l.db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM match_links WHERE pair_key = ?`, pair); err != nil {
			return fmt.Errorf("clearing links for %s: %w", pair, err)
		}
		for _, link := range links {
			created := now
			if !link.CreatedAt.IsZero() {
				created = link.CreatedAt.Format(tsLayout)
			}
			if _, err := tx.Exec(`
				INSERT INTO match_links (run_id, pair_key, record_a, record_b,
					confidence, match_rule, status, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, pair, link.RecordA, link.RecordB,
				link.Confidence.StringFixed(2), string(link.Rule), string(link.Status), created); err != nil {
				return fmt.Errorf("inserting link %d->%d: %w", link.RecordA, link.RecordB, err)
			}
		}
		return nil
	})
}

// Confirmed returns all confirmed links across every pair scope.
func (l *LinkRepo) Confirmed() ([]model.MatchLink, error) {
	return l.selectLinks(`
		SELECT id, run_id, record_a, record_b, confidence, match_rule, status, created_at
		FROM match_links WHERE status = ?
		ORDER BY id`, string(model.LinkConfirmed))
}

// ForRecord returns every link touching a record, either side. This backs
// the match-status lookup the CRUD layer consumes.
func (l *LinkRepo) ForRecord(recordID int64) ([]model.MatchLink, error) {
	return l.selectLinks(`
		SELECT id, run_id, record_a, record_b, confidence, match_rule, status, created_at
		FROM match_links WHERE record_a = ? OR record_b = ?
		ORDER BY id`, recordID, recordID)
}

func (l *LinkRepo) selectLinks(q string, args ...any) ([]model.MatchLink, error) {
	rows, err := l.db.query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", err)
	}
	defer rows.Close()

	var out []model.MatchLink
	for rows.Next() {
		var (
			link       model.MatchLink
			confidence string
			rule       string
			status     string
			created    string
		)
		if err := rows.Scan(&link.ID, &link.RunID, &link.RecordA, &link.RecordB,
			&confidence, &rule, &status, &created); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		if link.Confidence, err = decimal.NewFromString(confidence); err != nil {
			return nil, fmt.Errorf("link %d: parsing confidence: %w", link.ID, err)
		}
		if link.CreatedAt, err = time.Parse(tsLayout, created); err != nil {
			return nil, fmt.Errorf("link %d: parsing created_at: %w", link.ID, err)
		}
		link.Rule = model.MatchRule(rule)
		link.Status = model.LinkStatus(status)
		out = append(out, link)
	}
	return out, rows.Err()
}
