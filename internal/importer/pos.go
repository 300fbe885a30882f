package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reckon-dev/reckon/internal/canon"
	"github.com/reckon-dev/reckon/internal/model"
)

// POSParser parses point-of-sale terminal exports. Amounts arrive as
// gross cents; timestamps are RFC3339.
type POSParser struct{}

const (
	posNumFields    = 4
	posColTxnID     = 0
	posColTimestamp = 1
	posColCents     = 2
	posColTerminal  = 3

	posSource = "pos"
)

// Format returns the parser name.
func (p *POSParser) Format() string { return "pos" }

// Parse reads a POS CSV. Rows that fail canonicalization come back in
// the Quarantine slice with the failure recorded as the reason.
func (p *POSParser) Parse(r io.Reader) (ParseResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = posNumFields

	rows, err := cr.ReadAll()
	if err != nil {
		return ParseResult{}, fmt.Errorf("reading pos CSV: %w", err)
	}
	if len(rows) <= 1 {
		return ParseResult{}, nil
	}

	var res ParseResult
	now := time.Now().UTC()
	for _, rec := range rows[1:] {
		tr, perr := parsePOSRow(rec, now)
		if perr != nil {
			tr.Status = model.RecordQuarantined
			tr.QuarantineReason = perr.Error()
			res.Quarantine = append(res.Quarantine, tr)
			continue
		}
		res.Records = append(res.Records, tr)
	}
	return res, nil
}

func parsePOSRow(rec []string, now time.Time) (model.TransactionRecord, error) {
	terminal := strings.TrimSpace(rec[posColTerminal])
	tr := model.TransactionRecord{
		SourceSystem:     posSource,
		ExternalID:       strings.TrimSpace(rec[posColTxnID]),
		CounterpartyText: terminal,
		AccountRef:       terminal,
		RawPayload:       strings.Join(rec, ","),
		Status:           model.RecordActive,
		CreatedAt:        now,
	}
	tr.CounterpartyCanon = canon.NormalizeVendor(terminal)

	if tr.ExternalID == "" {
		return tr, fmt.Errorf("missing transaction id")
	}

	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[posColTimestamp]))
	if err != nil {
		return tr, &canon.ParseError{Field: "date", Input: rec[posColTimestamp], Cause: err}
	}
	tr.OccurredOn = ts.UTC()

	cents, err := decimal.NewFromString(strings.TrimSpace(rec[posColCents]))
	if err != nil || !cents.IsInteger() {
		return tr, &canon.ParseError{Field: "amount", Input: rec[posColCents], Cause: err}
	}
	tr.Amount = cents.Shift(-2)

	return tr, nil
}
