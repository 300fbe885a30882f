package dedup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reckon-dev/reckon/internal/model"
)

func rec(id int64, ext, account, amount, day string, created time.Time) model.TransactionRecord {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return model.TransactionRecord{
		ID:         id,
		ExternalID: ext,
		AccountRef: account,
		Amount:     decimal.RequireFromString(amount),
		OccurredOn: d,
		Status:     model.RecordActive,
		CreatedAt:  created,
	}
}

var (
	t0 = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func TestGroups_SameDayAmount(t *testing.T) {
	records := []model.TransactionRecord{
		rec(1, "a-1", "acct", "25.00", "2024-01-05", t0),
		rec(2, "a-2", "acct", "25.00", "2024-01-05", t1), // second import pass
		rec(3, "a-3", "acct", "25.00", "2024-01-06", t0), // different day
		rec(4, "a-4", "other", "25.00", "2024-01-05", t0),
	}

	groups := Groups(records)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(1), groups[0].Canonical)
	assert.Equal(t, []int64{1, 2}, groups[0].Members)
	assert.Equal(t, ReasonSameDayAmount, groups[0].ReasonCode)
}

func TestGroups_CanonicalIsEarliestCreated(t *testing.T) {
	records := []model.TransactionRecord{
		rec(7, "z-9", "acct", "10.00", "2024-02-01", t1),
		rec(8, "z-1", "acct", "10.00", "2024-02-01", t0),
	}

	groups := Groups(records)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(8), groups[0].Canonical)
}

func TestGroups_TieBreakLowestExternalID(t *testing.T) {
	records := []model.TransactionRecord{
		rec(7, "z-9", "acct", "10.00", "2024-02-01", t0),
		rec(8, "z-1", "acct", "10.00", "2024-02-01", t0),
	}

	groups := Groups(records)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(8), groups[0].Canonical, "same created_at falls back to lowest external_id")
}

func TestGroups_Idempotent(t *testing.T) {
	records := []model.TransactionRecord{
		rec(1, "a-2", "acct", "5.00", "2024-03-01", t1),
		rec(2, "a-1", "acct", "5.00", "2024-03-01", t0),
		rec(3, "a-3", "acct", "5.00", "2024-03-01", t0),
	}

	first := Groups(records)
	// Shuffled input must regenerate the same groups.
	second := Groups([]model.TransactionRecord{records[2], records[0], records[1]})
	assert.Equal(t, first, second)
}

func TestGroups_SkipsQuarantined(t *testing.T) {
	q := rec(1, "a-1", "acct", "9.00", "2024-04-01", t0)
	q.Status = model.RecordQuarantined
	records := []model.TransactionRecord{
		q,
		rec(2, "a-2", "acct", "9.00", "2024-04-01", t1),
	}
	assert.Empty(t, Groups(records))
}

func TestTotal_NoDoubleCounting(t *testing.T) {
	records := []model.TransactionRecord{
		rec(1, "a-1", "acct", "25.00", "2024-01-05", t0),
		rec(2, "a-2", "acct", "25.00", "2024-01-05", t1),
		rec(3, "a-3", "acct", "40.00", "2024-01-06", t0),
	}
	groups := Groups(records)
	require.Len(t, groups, 1)

	// The duplicate pair counts once: 25 + 40, not 25 + 25 + 40.
	assert.Equal(t, "65.00", Total(records, groups).StringFixed(2))

	// Non-canonical members remain present and queryable in the input set.
	assert.Len(t, records, 3)
	assert.Len(t, CanonicalOnly(records, groups), 2)
}
