package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/reckon-dev/reckon/internal/canon"
	"github.com/reckon-dev/reckon/internal/model"
)

// GenericParser parses the house CSV layout:
// source,external_id,date,amount,counterparty,account.
type GenericParser struct {
	// YearHint resolves bare MMDD dates. Zero means the current year.
	YearHint int
}

const (
	genericNumFields = 6
	genericColSource = 0
	genericColExtID  = 1
	genericColDate   = 2
	genericColAmount = 3
	genericColDesc   = 4
	genericColAcct   = 5
)

// Format returns the parser name.
func (p *GenericParser) Format() string { return "generic" }

// Parse reads a generic CSV. Rows that fail canonicalization come back
// in the Quarantine slice with the failure recorded as the reason.
func (p *GenericParser) Parse(r io.Reader) (ParseResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = genericNumFields

	rows, err := cr.ReadAll()
	if err != nil {
		return ParseResult{}, fmt.Errorf("reading generic CSV: %w", err)
	}
	if len(rows) <= 1 {
		return ParseResult{}, nil
	}

	var res ParseResult
	now := time.Now().UTC()
	hint := p.YearHint
	if hint == 0 {
		hint = now.Year()
	}
	for _, rec := range rows[1:] {
		tr, perr := parseGenericRow(rec, now, hint)
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

func parseGenericRow(rec []string, now time.Time, yearHint int) (model.TransactionRecord, error) {
	tr := model.TransactionRecord{
		SourceSystem:     strings.TrimSpace(rec[genericColSource]),
		ExternalID:       strings.TrimSpace(rec[genericColExtID]),
		CounterpartyText: rec[genericColDesc],
		AccountRef:       strings.TrimSpace(rec[genericColAcct]),
		RawPayload:       strings.Join(rec, ","),
		Status:           model.RecordActive,
		CreatedAt:        now,
	}
	tr.CounterpartyCanon = canon.NormalizeVendor(tr.CounterpartyText)

	date, err := canon.ParseDate(rec[genericColDate], yearHint)
	if err != nil {
		return tr, err
	}
	tr.OccurredOn = date

	amount, err := canon.ParseAmount(rec[genericColAmount])
	if err != nil {
		return tr, err
	}
	tr.Amount = amount

	if tr.SourceSystem == "" || tr.ExternalID == "" {
		return tr, fmt.Errorf("missing source or external id")
	}
	return tr, nil
}
