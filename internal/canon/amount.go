package canon

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseError describes a value that could not be canonicalized. Records
// carrying one are quarantined for review, never silently dropped.
type ParseError struct {
	Field string
	Input string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parsing %s %q: %v", e.Field, e.Input, e.Cause)
	}
	return fmt.Sprintf("parsing %s %q", e.Field, e.Input)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ParseAmount parses a locale-formatted currency string into a 2-decimal
// fixed-point value. Accepted forms: "1,234.56", "$45.00", "-45.00",
// "(45.00)" for negative. The absolute value is rounded half-up to two
// places, then the sign is applied.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, &ParseError{Field: "amount", Input: raw}
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ParseError{Field: "amount", Input: raw, Cause: err}
	}
	if d.IsNegative() {
		return decimal.Zero, &ParseError{Field: "amount", Input: raw}
	}

	d = d.Round(2) // half-up on the non-negative magnitude
	if negative {
		d = d.Neg()
	}
	return d, nil
}
