package store

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/reckon-dev/reckon/internal/model"
)

// LedgerRepo provides typed access to generation-tagged ledgers.
type LedgerRepo struct {
	db *DB
}

// Rebuild replaces an entity's ledger wholesale: the computed entries are
// written under a fresh generation, the generation pointer swaps, and the
// retired generation is deleted, all in one transaction. Readers never see a
// partially rebuilt ledger.
func (l *LedgerRepo) Rebuild(entityRef string, entries []model.LedgerEntry) error {
	gen := uuid.NewString()
	now := time.Now().UTC().Format(tsLayout)

	return l.db.Transaction(func(tx *sql.Tx) error {
		for seq, e := range entries {
			if _, err := tx.Exec(`
				INSERT INTO ledger_entries (entity_ref, generation, seq, entry_date,
					entry_type, description, amount, running_balance, source_ref)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				entityRef, gen, seq, e.Date.Format(dateLayout), string(e.Type),
				e.Description, e.Amount.StringFixed(2), e.RunningBalance.StringFixed(2),
				e.SourceRef); err != nil {
				return fmt.Errorf("inserting ledger entry %d for %s: %w", seq, entityRef, err)
			}
		}

		if _, err := tx.Exec(`
			INSERT INTO ledger_generations (entity_ref, generation, rebuilt_at)
			VALUES (?, ?, ?)
			ON CONFLICT(entity_ref) DO UPDATE SET
				generation = excluded.generation,
				rebuilt_at = excluded.rebuilt_at`,
			entityRef, gen, now); err != nil {
			return fmt.Errorf("swapping ledger generation for %s: %w", entityRef, err)
		}

		if _, err := tx.Exec(`
			DELETE FROM ledger_entries WHERE entity_ref = ? AND generation != ?`,
			entityRef, gen); err != nil {
			return fmt.Errorf("retiring old ledger generation for %s: %w", entityRef, err)
		}
		return nil
	})
}

// Entries returns the current-generation ledger for an entity in order.
func (l *LedgerRepo) Entries(entityRef string) ([]model.LedgerEntry, error) {
	rows, err := l.db.query(`
		SELECT e.entity_ref, e.entry_date, e.entry_type, e.description,
			e.amount, e.running_balance, e.source_ref
		FROM ledger_entries e
		JOIN ledger_generations g
			ON g.entity_ref = e.entity_ref AND g.generation = e.generation
		WHERE e.entity_ref = ?
		ORDER BY e.seq`, entityRef)
	if err != nil {
		return nil, fmt.Errorf("querying ledger for %s: %w", entityRef, err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var (
			e       model.LedgerEntry
			date    string
			typ     string
			amount  string
			balance string
		)
		if err := rows.Scan(&e.EntityRef, &date, &typ, &e.Description,
			&amount, &balance, &e.SourceRef); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		if e.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parsing ledger date: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing ledger amount: %w", err)
		}
		if e.RunningBalance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("parsing running balance: %w", err)
		}
		e.Type = model.EntryType(typ)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Entities lists every entity holding a current ledger.
func (l *LedgerRepo) Entities() ([]string, error) {
	rows, err := l.db.query(`SELECT entity_ref FROM ledger_generations ORDER BY entity_ref`)
	if err != nil {
		return nil, fmt.Errorf("querying ledger entities: %w", err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scanning entity ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// exportHeader is the flat ledger export format.
var exportHeader = []string{"date", "entry_type", "description", "charge_amount", "payment_amount", "running_balance"}

// ExportCSV writes an entity's ledger as the flat export table.
func (l *LedgerRepo) ExportCSV(w io.Writer, entityRef string) error {
	entries, err := l.Entries(entityRef)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}
	for _, e := range entries {
		charge, payment := "", ""
		if e.Type == model.EntryCharge {
			charge = e.Amount.StringFixed(2)
		} else {
			payment = e.Amount.StringFixed(2)
		}
		row := []string{
			e.Date.Format(dateLayout),
			string(e.Type),
			e.Description,
			charge,
			payment,
			e.RunningBalance.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing export row: %w", err)
		}
	}
	return cw.Error()
}
