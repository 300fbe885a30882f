package match

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reckon-dev/reckon/internal/canon"
	"github.com/reckon-dev/reckon/internal/model"
)

func rec(id int64, ext, amount, date, counterparty string) model.TransactionRecord {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return model.TransactionRecord{
		ID:                id,
		ExternalID:        ext,
		OccurredOn:        d,
		Amount:            decimal.RequireFromString(amount),
		CounterpartyText:  counterparty,
		CounterpartyCanon: canon.NormalizeVendor(counterparty),
		Status:            model.RecordActive,
	}
}

func TestRun_ExactKeyPriority(t *testing.T) {
	// Shared foreign key links at 0.95 regardless of description noise.
	a := []model.TransactionRecord{rec(1, "RES-4411", "-250.00", "2012-05-01", "GARBLED ???")}
	b := []model.TransactionRecord{rec(2, "RES-4411", "250.00", "2012-06-15", "SOMETHING ELSE")}

	res := Run(a, b, DefaultConfig())
	require.Len(t, res.Links, 1)
	assert.Equal(t, model.RuleExactKey, res.Links[0].Rule)
	assert.True(t, res.Links[0].Confidence.GreaterThanOrEqual(decimal.RequireFromString("0.95")))
	assert.Empty(t, res.OrphansA)
	assert.Empty(t, res.OrphansB)
}

func TestRun_FuzzyMatchLocality(t *testing.T) {
	// A $37.50 debit matches the same-day CENTEX receipt at >= 0.85; the
	// unrelated $37.50 record 13 days out ends up an orphan.
	a := []model.TransactionRecord{
		rec(1, "bank-1", "-37.50", "2012-05-07", "PURCHASE CENTEX CALGARY AB"),
	}
	b := []model.TransactionRecord{
		rec(2, "rcpt-1", "37.50", "2012-05-07", "CENTEX"),
		rec(3, "rcpt-2", "37.50", "2012-05-20", "UNRELATED VENDOR"),
	}

	res := Run(a, b, DefaultConfig())
	require.Len(t, res.Links, 1)
	link := res.Links[0]
	assert.Equal(t, "rcpt-1", link.B.ExternalID)
	assert.Equal(t, model.RuleExactAmount, link.Rule)
	assert.True(t, link.Confidence.GreaterThanOrEqual(decimal.RequireFromString("0.85")),
		"confidence %s", link.Confidence)

	require.Len(t, res.OrphansB, 1)
	assert.Equal(t, "rcpt-2", res.OrphansB[0].ExternalID)
}

func TestRun_ClaimedRecordUnavailableToLaterPhases(t *testing.T) {
	// The exact-key phase claims B; the narrow-window phase must not reuse
	// it for the second A record even though amount and date line up.
	a := []model.TransactionRecord{
		rec(1, "KEY-1", "-40.00", "2024-03-10", "VENDOR ONE"),
		rec(2, "bank-9", "-40.00", "2024-03-10", "VENDOR ONE"),
	}
	b := []model.TransactionRecord{
		rec(3, "KEY-1", "40.00", "2024-03-10", "VENDOR ONE"),
	}

	res := Run(a, b, DefaultConfig())
	require.Len(t, res.Links, 1)
	assert.Equal(t, model.RuleExactKey, res.Links[0].Rule)
	assert.Equal(t, int64(1), res.Links[0].A.ID)

	require.Len(t, res.OrphansA, 1)
	assert.Equal(t, int64(2), res.OrphansA[0].ID)
}

func TestRun_DatePenaltyRanksCloserCandidate(t *testing.T) {
	a := []model.TransactionRecord{
		rec(1, "bank-1", "-12.00", "2024-01-10", "SHOP"),
	}
	b := []model.TransactionRecord{
		rec(2, "r-far", "12.00", "2024-01-13", "SHOP"),
		rec(3, "r-near", "12.00", "2024-01-11", "SHOP"),
	}

	res := Run(a, b, DefaultConfig())
	require.Len(t, res.Links, 1)
	assert.Equal(t, "r-near", res.Links[0].B.ExternalID)
}

func TestRun_FuzzyAmountWithinEpsilon(t *testing.T) {
	a := []model.TransactionRecord{
		rec(1, "bank-1", "-100.01", "2024-01-10", "ALPHA"),
	}
	b := []model.TransactionRecord{
		rec(2, "r-1", "100.00", "2024-01-15", "ALPHA"),
	}

	res := Run(a, b, DefaultConfig())
	require.Len(t, res.Links, 1)
	assert.Equal(t, model.RuleFuzzyAmount, res.Links[0].Rule)
	assert.True(t, res.Links[0].Confidence.LessThan(decimal.RequireFromString("0.70")),
		"fuzzy link must not outrank an exact-amount link, got %s", res.Links[0].Confidence)
}

func TestRun_AmbiguousTieResolvedByLowestExternalID(t *testing.T) {
	a := []model.TransactionRecord{
		rec(1, "bank-1", "-55.00", "2024-02-01", "CAFE"),
	}
	b := []model.TransactionRecord{
		rec(9, "r-002", "55.00", "2024-02-01", "CAFE"),
		rec(8, "r-001", "55.00", "2024-02-01", "CAFE"),
	}

	res := Run(a, b, DefaultConfig())
	require.Len(t, res.Links, 1)
	assert.Equal(t, "r-001", res.Links[0].B.ExternalID)
	require.Len(t, res.Ambiguous, 1)
	assert.Equal(t, "r-002", res.Ambiguous[0].Other.ExternalID)
}

func TestRun_VendorSynonymBonus(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VendorSynonyms = map[string][]string{
		"CENTEX": {"CENTEX PETROLEUM", "CTX FUEL"},
	}

	a := []model.TransactionRecord{rec(1, "bank-1", "-30.00", "2024-04-02", "CTX FUEL 0042")}
	b := []model.TransactionRecord{rec(2, "r-1", "30.00", "2024-04-02", "CENTEX PETROLEUM LTD")}

	res := Run(a, b, cfg)
	require.Len(t, res.Links, 1)
	assert.True(t, res.Links[0].Confidence.GreaterThanOrEqual(decimal.RequireFromString("0.85")))
}

func TestRun_QuarantinedRecordsExcluded(t *testing.T) {
	q := rec(1, "bank-1", "-20.00", "2024-05-01", "SHOP")
	q.Status = model.RecordQuarantined
	b := []model.TransactionRecord{rec(2, "r-1", "20.00", "2024-05-01", "SHOP")}

	res := Run([]model.TransactionRecord{q}, b, DefaultConfig())
	assert.Empty(t, res.Links)
	assert.Empty(t, res.OrphansA)
	require.Len(t, res.OrphansB, 1)
}

func TestRun_Deterministic(t *testing.T) {
	a := []model.TransactionRecord{
		rec(1, "bank-2", "-10.00", "2024-06-01", "X"),
		rec(2, "bank-1", "-10.00", "2024-06-01", "X"),
	}
	b := []model.TransactionRecord{
		rec(3, "r-2", "10.00", "2024-06-01", "X"),
		rec(4, "r-1", "10.00", "2024-06-01", "X"),
	}

	first := Run(a, b, DefaultConfig())
	// Reversed input order must not change the outcome.
	second := Run(
		[]model.TransactionRecord{a[1], a[0]},
		[]model.TransactionRecord{b[1], b[0]},
		DefaultConfig(),
	)

	require.Equal(t, len(first.Links), len(second.Links))
	for i := range first.Links {
		assert.Equal(t, first.Links[i].A.ExternalID, second.Links[i].A.ExternalID)
		assert.Equal(t, first.Links[i].B.ExternalID, second.Links[i].B.ExternalID)
	}
}
