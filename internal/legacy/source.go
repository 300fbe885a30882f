// Package legacy adapts an external, authoritative-but-slow-changing data
// source into a paged, watermark-filterable cursor the sync orchestrator can
// drain. The source is read-only; nothing here writes anywhere.
package legacy

import (
	"context"
	"errors"
	"time"
)

// ErrSourceUnavailable signals the legacy source cannot be reached. The sync
// run is skipped entirely, the watermark stays put, and a later retry is
// safe.
var ErrSourceUnavailable = errors.New("legacy source unavailable")

// RawRecord is one row fetched from the legacy source, untouched by
// canonicalization. Fields holds the raw column values keyed by column name;
// Payload is the original serialized row kept for replay.
type RawRecord struct {
	EntityType   string
	NaturalKey   string
	LastModified time.Time
	Fields       map[string]string
	Payload      string
}

// Source is the read-only legacy adapter contract. Implementations must
// return records with last_modified strictly after the watermark, ordered by
// last_modified ascending.
type Source interface {
	FetchSince(ctx context.Context, entityType string, watermark time.Time) (*Cursor, error)
}

// pageFunc fetches one page starting at offset. An empty page ends the
// cursor.
type pageFunc func(offset int) ([]RawRecord, error)

// Cursor iterates fetched records page by page.
type Cursor struct {
	fetch    pageFunc
	page     []RawRecord
	pos      int
	offset   int
	pageSize int
	done     bool
}

// NewCursor wraps a page-fetching function. pageSize only advances the
// offset bookkeeping; fetch decides how much it actually returns.
func NewCursor(fetch pageFunc) *Cursor {
	return &Cursor{fetch: fetch}
}

// Next returns the next record, or ok=false when the cursor is drained.
func (c *Cursor) Next() (RawRecord, bool, error) {
	for c.pos >= len(c.page) {
		if c.done {
			return RawRecord{}, false, nil
		}
		page, err := c.fetch(c.offset)
		if err != nil {
			return RawRecord{}, false, err
		}
		if len(page) == 0 {
			c.done = true
			return RawRecord{}, false, nil
		}
		c.offset += len(page)
		c.page = page
		c.pos = 0
	}

	r := c.page[c.pos]
	c.pos++
	return r, true, nil
}
