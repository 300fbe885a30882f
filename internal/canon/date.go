package canon

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order. time.Parse validates calendar bounds, so
// 2024-02-30 or month 13 fail rather than wrapping.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2 2006",
	"Jan 02, 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses a raw date in any supported format into a UTC midnight
// date. Bare "MMDD" input is resolved against yearHint. Impossible calendar
// dates are rejected with a ParseError.
func ParseDate(raw string, yearHint int) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, &ParseError{Field: "date", Input: raw}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	// Bare MMDD, e.g. "0507" -> May 7 of the hint year.
	if len(s) == 4 && isDigits(s) {
		if yearHint == 0 {
			return time.Time{}, &ParseError{Field: "date", Input: raw, Cause: fmt.Errorf("bare MMDD requires a year hint")}
		}
		month, _ := strconv.Atoi(s[:2])
		day, _ := strconv.Atoi(s[2:])
		if err := checkCalendar(yearHint, month, day); err != nil {
			return time.Time{}, &ParseError{Field: "date", Input: raw, Cause: err}
		}
		return time.Date(yearHint, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, &ParseError{Field: "date", Input: raw}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// checkCalendar rejects impossible month/day combinations instead of letting
// time.Date normalize them (e.g. Feb 30 -> Mar 2).
func checkCalendar(year, month, day int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("month %d out of range", month)
	}
	if day < 1 || day > 31 {
		return fmt.Errorf("day %d out of range", day)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(t.Month()) != month || t.Day() != day {
		return fmt.Errorf("no such date %04d-%02d-%02d", year, month, day)
	}
	return nil
}
