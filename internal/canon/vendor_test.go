package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVendor_StripsPrefixes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"PURCHASE CENTEX PETROLEUM", "CENTEX PETROLEUM"},
		{"DEBIT MEMO SAFEWAY", "SAFEWAY"},
		{"PRE-AUTH TELUS MOBILITY", "TELUS MOBILITY"},
		{"POS PURCHASE COSTCO WHOLESALE", "COSTCO WHOLESALE"},
		{"cheque 00123 ACME SUPPLY", "00123 ACME SUPPLY"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeVendor(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNormalizeVendor_RemovesCardFragments(t *testing.T) {
	assert.Equal(t, "SHELL", NormalizeVendor("SHELL 4520****1234"))
	assert.Equal(t, "ESSO", NormalizeVendor("1234***567 ESSO"))
}

func TestNormalizeVendor_RemovesBranchCodes(t *testing.T) {
	assert.Equal(t, "SAFEWAY", NormalizeVendor("SAFEWAY #123"))
	assert.Equal(t, "WALMART", NormalizeVendor("WALMART STORE 3004"))
}

func TestNormalizeVendor_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "CENTEX CALGARY AB", NormalizeVendor("  CENTEX   CALGARY\tAB "))
}

func TestNormalizeVendor_Idempotent(t *testing.T) {
	inputs := []string{
		"PURCHASE CENTEX PETROLEUM #42",
		"DEBIT MEMO  SHELL 4520****1234  ",
		"plain vendor name",
	}
	for _, raw := range inputs {
		once := NormalizeVendor(raw)
		assert.Equal(t, once, NormalizeVendor(once), "raw=%q", raw)
	}
}
