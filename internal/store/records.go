package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reckon-dev/reckon/internal/model"
)

const (
	dateLayout = "2006-01-02"
	tsLayout   = time.RFC3339
)

// RecordRepo provides typed access to transaction records.
type RecordRepo struct {
	db *DB
}

const recordColumns = `id, source_system, external_id, occurred_on, amount,
	counterparty_text, counterparty_canon, account_ref, raw_payload,
	status, quarantine_reason, created_at`

// Ingest inserts a new record. Duplicate natural keys are rejected; use the
// sync path for upserts.
func (r *RecordRepo) Ingest(rec model.TransactionRecord) (int64, error) {
	if rec.Status == "" {
		rec.Status = model.RecordActive
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.exec(`
		INSERT INTO records (source_system, external_id, occurred_on, amount,
			counterparty_text, counterparty_canon, account_ref, raw_payload,
			status, quarantine_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SourceSystem, rec.ExternalID, rec.OccurredOn.Format(dateLayout),
		rec.Amount.StringFixed(2), rec.CounterpartyText, rec.CounterpartyCanon,
		rec.AccountRef, rec.RawPayload, string(rec.Status), rec.QuarantineReason,
		rec.CreatedAt.Format(tsLayout))
	if err != nil {
		return 0, fmt.Errorf("inserting record %s/%s: %w", rec.SourceSystem, rec.ExternalID, err)
	}
	return res.LastInsertId()
}

// UpsertChange describes what an upsert did to one record.
type UpsertChange int

const (
	// ChangeNone means an identical live row already existed; nothing was
	// written. This is what makes a repeated sync run produce zero writes.
	ChangeNone UpsertChange = iota
	// ChangeInserted means a new row was inserted.
	ChangeInserted
	// ChangeSuperseded means the previous row was marked superseded and a
	// new row inserted in its place.
	ChangeSuperseded
)

// UpsertTx inserts rec by natural key inside an open transaction. An
// existing live row with identical content is left untouched; a differing
// one is superseded, never mutated in place.
func (r *RecordRepo) UpsertTx(tx *sql.Tx, rec model.TransactionRecord) (UpsertChange, error) {
	if rec.Status == "" {
		rec.Status = model.RecordActive
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var (
		existingID int64
		occurred   string
		amount     string
		cparty     string
		payload    string
		status     string
	)
	err := tx.QueryRow(`
		SELECT id, occurred_on, amount, counterparty_text, raw_payload, status
		FROM records
		WHERE source_system = ? AND external_id = ? AND status != 'superseded'`,
		rec.SourceSystem, rec.ExternalID).
		Scan(&existingID, &occurred, &amount, &cparty, &payload, &status)

	switch {
	case err == sql.ErrNoRows:
		// New natural key.
	case err != nil:
		return ChangeNone, fmt.Errorf("looking up %s/%s: %w", rec.SourceSystem, rec.ExternalID, err)
	default:
		same := occurred == rec.OccurredOn.Format(dateLayout) &&
			amount == rec.Amount.StringFixed(2) &&
			cparty == rec.CounterpartyText &&
			payload == rec.RawPayload &&
			status == string(rec.Status)
		if same {
			return ChangeNone, nil
		}
		if _, err := tx.Exec(`UPDATE records SET status = 'superseded' WHERE id = ?`, existingID); err != nil {
			return ChangeNone, fmt.Errorf("superseding record %d: %w", existingID, err)
		}
	}

	_, insErr := tx.Exec(`
		INSERT INTO records (source_system, external_id, occurred_on, amount,
			counterparty_text, counterparty_canon, account_ref, raw_payload,
			status, quarantine_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SourceSystem, rec.ExternalID, rec.OccurredOn.Format(dateLayout),
		rec.Amount.StringFixed(2), rec.CounterpartyText, rec.CounterpartyCanon,
		rec.AccountRef, rec.RawPayload, string(rec.Status), rec.QuarantineReason,
		rec.CreatedAt.Format(tsLayout))
	if insErr != nil {
		return ChangeNone, fmt.Errorf("inserting record %s/%s: %w", rec.SourceSystem, rec.ExternalID, insErr)
	}

	if err == sql.ErrNoRows {
		return ChangeInserted, nil
	}
	return ChangeSuperseded, nil
}

// BySource returns all non-superseded records for one source system.
func (r *RecordRepo) BySource(source string) ([]model.TransactionRecord, error) {
	return r.selectRecords(`
		SELECT `+recordColumns+` FROM records
		WHERE source_system = ? AND status != 'superseded'
		ORDER BY external_id`, source)
}

// Active returns active records in [from, to], both bounds inclusive. Zero
// bounds are open.
func (r *RecordRepo) Active(from, to time.Time) ([]model.TransactionRecord, error) {
	lo, hi := "0000-01-01", "9999-12-31"
	if !from.IsZero() {
		lo = from.Format(dateLayout)
	}
	if !to.IsZero() {
		hi = to.Format(dateLayout)
	}
	return r.selectRecords(`
		SELECT `+recordColumns+` FROM records
		WHERE status = 'active' AND occurred_on >= ? AND occurred_on <= ?
		ORDER BY occurred_on, external_id`, lo, hi)
}

// Quarantined returns the needs-review bucket.
func (r *RecordRepo) Quarantined() ([]model.TransactionRecord, error) {
	return r.selectRecords(`
		SELECT ` + recordColumns + ` FROM records
		WHERE status = 'quarantined'
		ORDER BY created_at, external_id`)
}

// ByExternalID returns the live record for a natural key.
func (r *RecordRepo) ByExternalID(source, externalID string) (model.TransactionRecord, error) {
	recs, err := r.selectRecords(`
		SELECT `+recordColumns+` FROM records
		WHERE source_system = ? AND external_id = ? AND status != 'superseded'`,
		source, externalID)
	if err != nil {
		return model.TransactionRecord{}, err
	}
	if len(recs) == 0 {
		return model.TransactionRecord{}, fmt.Errorf("record %s/%s: %w", source, externalID, ErrNotFound)
	}
	return recs[0], nil
}

// CountBySource returns live record counts keyed by source system.
func (r *RecordRepo) CountBySource() (map[string]int, error) {
	rows, err := r.db.query(`
		SELECT source_system, COUNT(*) FROM records
		WHERE status != 'superseded'
		GROUP BY source_system`)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, fmt.Errorf("scanning record count: %w", err)
		}
		counts[src] = n
	}
	return counts, rows.Err()
}

func (r *RecordRepo) selectRecords(q string, args ...any) ([]model.TransactionRecord, error) {
	rows, err := r.db.query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []model.TransactionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (model.TransactionRecord, error) {
	var (
		rec      model.TransactionRecord
		occurred string
		amount   string
		status   string
		created  string
	)
	if err := rows.Scan(&rec.ID, &rec.SourceSystem, &rec.ExternalID, &occurred,
		&amount, &rec.CounterpartyText, &rec.CounterpartyCanon, &rec.AccountRef,
		&rec.RawPayload, &status, &rec.QuarantineReason, &created); err != nil {
		return model.TransactionRecord{}, fmt.Errorf("scanning record: %w", err)
	}

	var err error
	if rec.OccurredOn, err = time.Parse(dateLayout, occurred); err != nil {
		return model.TransactionRecord{}, fmt.Errorf("record %d: parsing occurred_on: %w", rec.ID, err)
	}
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return model.TransactionRecord{}, fmt.Errorf("record %d: parsing amount: %w", rec.ID, err)
	}
	if rec.CreatedAt, err = time.Parse(tsLayout, created); err != nil {
		return model.TransactionRecord{}, fmt.Errorf("record %d: parsing created_at: %w", rec.ID, err)
	}
	rec.Status = model.RecordStatus(status)
	return rec, nil
}
