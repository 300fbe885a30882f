package legacy

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// CSVSource reads legacy database exports from a directory holding one
// <entity_type>.csv per entity type. Expected columns:
// natural_key,last_modified,occurred_on,amount,counterparty,account_ref.
// This is the offline stand-in for a live legacy adapter; real adapters
// implement Source directly.
type CSVSource struct {
	dir      string
	pageSize int
}

const (
	csvNumFields       = 6
	colNaturalKey      = 0
	colLastModified    = 1
	colOccurredOn      = 2
	colAmount          = 3
	colCounterparty    = 4
	colAccountRef      = 5
	defaultPageSize    = 500
	lastModifiedLayout = time.RFC3339
)

// NewCSVSource creates a CSVSource over dir. pageSize <= 0 uses the default.
func NewCSVSource(dir string, pageSize int) *CSVSource {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &CSVSource{dir: dir, pageSize: pageSize}
}

// FetchSince returns a cursor over rows modified strictly after watermark,
// ascending by last_modified. A missing export directory surfaces as
// ErrSourceUnavailable; a missing per-entity file just yields no rows.
func (s *CSVSource) FetchSince(ctx context.Context, entityType string, watermark time.Time) (*Cursor, error) {
	if _, err := os.Stat(s.dir); err != nil {
		return nil, fmt.Errorf("export dir %s: %w", s.dir, ErrSourceUnavailable)
	}

	path := filepath.Join(s.dir, entityType+".csv")
	rows, err := s.readAll(path, entityType, watermark)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].LastModified.Before(rows[j].LastModified)
	})

	return NewCursor(func(offset int) ([]RawRecord, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if offset >= len(rows) {
			return nil, nil
		}
		end := offset + s.pageSize
		if end > len(rows) {
			end = len(rows)
		}
		return rows[offset:end], nil
	}), nil
}

func (s *CSVSource) readAll(path, entityType string, watermark time.Time) ([]RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening legacy export %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = csvNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading legacy export %s: %w", path, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var rows []RawRecord
	for i, rec := range records[1:] {
		modified, err := time.Parse(lastModifiedLayout, rec[colLastModified])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing last_modified %q: %w", i+2, rec[colLastModified], err)
		}
		if !modified.After(watermark) {
			continue
		}
		rows = append(rows, RawRecord{
			EntityType:   entityType,
			NaturalKey:   rec[colNaturalKey],
			LastModified: modified,
			Fields: map[string]string{
				"occurred_on":  rec[colOccurredOn],
				"amount":       rec[colAmount],
				"counterparty": rec[colCounterparty],
				"account_ref":  rec[colAccountRef],
			},
			Payload: strings.Join(rec, ","),
		})
	}
	return rows, nil
}
