package match

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/reckon-dev/reckon/internal/model"
)

// Config controls matcher windows, tolerances, and vendor affinity.
type Config struct {
	// NarrowWindowDays bounds the exact-amount phase (default 3).
	NarrowWindowDays int
	// WideWindowDays bounds the fuzzy-amount phase (default 14).
	WideWindowDays int
	// AmountEpsilon is the fuzzy-amount tolerance (default 0.02).
	AmountEpsilon decimal.Decimal
	// MinConfidence discards candidates scoring below it (default 0.35).
	MinConfidence decimal.Decimal
	// VendorSynonyms maps a canonical vendor name to alternate spellings.
	// A synonym hit between two counterparties earns the affinity bonus.
	VendorSynonyms map[string][]string
	// Key extracts the explicit foreign key used by the exact-key phase.
	// Records whose keys are equal and non-empty link at 0.95. Defaults to
	// KeyByExternalID.
	Key func(model.TransactionRecord) string
}

// DefaultConfig returns the matcher defaults.
func DefaultConfig() Config {
	return Config{
		NarrowWindowDays: 3,
		WideWindowDays:   14,
		AmountEpsilon:    decimal.RequireFromString("0.02"),
		MinConfidence:    decimal.RequireFromString("0.35"),
		VendorSynonyms:   map[string][]string{},
		Key:              KeyByExternalID,
	}
}

// KeyByExternalID treats a record's external ID as its foreign key.
func KeyByExternalID(r model.TransactionRecord) string {
	return strings.TrimSpace(r.ExternalID)
}

// vendorAffinity reports whether two canonical vendor strings refer to the
// same counterparty: direct containment either way, or membership in the
// same synonym set.
func (c Config) vendorAffinity(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	for name, aliases := range c.VendorSynonyms {
		names := append([]string{name}, aliases...)
		if containsAny(a, names) && containsAny(b, names) {
			return true
		}
	}
	return false
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}
