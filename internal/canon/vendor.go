// Package canon normalizes vendor text, currency amounts, and dates into
// comparable canonical forms. All functions are deterministic and
// side-effect free; normalization is idempotent.
package canon

import (
	"regexp"
	"strings"
)

// typePrefixes are transaction-type markers banks prepend to descriptions.
// Longer prefixes are listed first so "DEBIT MEMO" wins over "DEBIT".
var typePrefixes = []string{
	"PRE-AUTHORIZED",
	"PRE-AUTH",
	"DEBIT MEMO",
	"CREDIT MEMO",
	"E-TRANSFER",
	"PURCHASE",
	"INTERAC",
	"CHEQUE",
	"DEBIT",
	"POS",
}

var (
	cardFragmentRe = regexp.MustCompile(`\d{4}\*+\d{3,4}`)
	branchCodeRe   = regexp.MustCompile(`\s+(#\d+|STORE\s+\d+|BR\s+\d+)$`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// NormalizeVendor reduces raw counterparty text to a canonical comparable
// form: uppercased, transaction-type prefixes stripped, embedded card-number
// fragments and trailing branch codes removed, whitespace collapsed.
func NormalizeVendor(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))

	for changed := true; changed; {
		changed = false
		for _, p := range typePrefixes {
			if strings.HasPrefix(s, p+" ") || s == p {
				s = strings.TrimSpace(strings.TrimPrefix(s, p))
				changed = true
			}
		}
	}

	s = cardFragmentRe.ReplaceAllString(s, "")
	s = branchCodeRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
