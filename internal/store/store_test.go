package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reckon-dev/reckon/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	db, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func testRecord(ext, amount, day string) model.TransactionRecord {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return model.TransactionRecord{
		SourceSystem:     "legacy",
		ExternalID:       ext,
		OccurredOn:       d,
		Amount:           decimal.RequireFromString(amount),
		CounterpartyText: "VENDOR",
		AccountRef:       "acct-1",
		RawPayload:       ext + "," + amount,
		CreatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRecords_IngestAndLookup(t *testing.T) {
	s := openTest(t)

	id, err := s.Records.Ingest(testRecord("R-1", "100.00", "2024-01-05"))
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	got, err := s.Records.ByExternalID("legacy", "R-1")
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.Amount.StringFixed(2))
	assert.Equal(t, model.RecordActive, got.Status)

	_, err = s.Records.ByExternalID("legacy", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyBatch_IdempotentSecondRun(t *testing.T) {
	s := openTest(t)
	wm := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	batch := []model.TransactionRecord{
		testRecord("R-1", "100.00", "2024-01-05"),
		testRecord("R-2", "200.00", "2024-01-06"),
	}

	first, err := s.ApplyBatch("reservation", batch, wm)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 2, first.Writes())

	// Same batch again: zero writes.
	second, err := s.ApplyBatch("reservation", batch, wm)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Writes())
	assert.Equal(t, 2, second.Unchanged)

	got, err := s.Watermark("reservation")
	require.NoError(t, err)
	assert.True(t, wm.Equal(got))
}

func TestApplyBatch_SupersedesChangedRecord(t *testing.T) {
	s := openTest(t)
	wm := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.ApplyBatch("legacy", []model.TransactionRecord{testRecord("R-1", "100.00", "2024-01-05")}, wm)
	require.NoError(t, err)

	changed := testRecord("R-1", "150.00", "2024-01-05")
	changed.RawPayload = "R-1,150.00"
	res, err := s.ApplyBatch("legacy", []model.TransactionRecord{changed}, wm.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Superseded)

	// The live row carries the new amount; the old row still exists.
	live, err := s.Records.ByExternalID("legacy", "R-1")
	require.NoError(t, err)
	assert.Equal(t, "150.00", live.Amount.StringFixed(2))

	all, err := s.Records.BySource("legacy")
	require.NoError(t, err)
	require.Len(t, all, 1, "BySource returns only the live row")
}

func TestWatermark_NeverMovesBackwards(t *testing.T) {
	s := openTest(t)
	wm := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.ApplyBatch("pos", nil, wm)
	require.NoError(t, err)

	_, err = s.ApplyBatch("pos", nil, wm.Add(-time.Hour))
	require.Error(t, err)

	got, err := s.Watermark("pos")
	require.NoError(t, err)
	assert.True(t, wm.Equal(got), "failed batch leaves the watermark unchanged")
}

func TestLedgers_RebuildSwapsGenerations(t *testing.T) {
	s := openTest(t)
	entries := []model.LedgerEntry{
		{
			EntityRef: "acct-1", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Type: model.EntryCharge, Amount: decimal.RequireFromString("100.00"),
			RunningBalance: decimal.RequireFromString("100.00"),
		},
		{
			EntityRef: "acct-1", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Type: model.EntryPayment, Amount: decimal.RequireFromString("100.00"),
			RunningBalance: decimal.Zero,
		},
	}

	require.NoError(t, s.Ledgers.Rebuild("acct-1", entries))
	require.NoError(t, s.Ledgers.Rebuild("acct-1", entries)) // rebuild again

	got, err := s.Ledgers.Entries("acct-1")
	require.NoError(t, err)
	require.Len(t, got, 2, "old generation rows are retired, not accumulated")
	assert.Equal(t, "0.00", got[1].RunningBalance.StringFixed(2))

	refs, err := s.Ledgers.Entities()
	require.NoError(t, err)
	assert.Equal(t, []string{"acct-1"}, refs)
}

func TestLinks_ReplacePairRegenerates(t *testing.T) {
	s := openTest(t)

	a, err := s.Records.Ingest(testRecord("A-1", "10.00", "2024-01-01"))
	require.NoError(t, err)
	rec2 := testRecord("B-1", "10.00", "2024-01-01")
	rec2.SourceSystem = "receipts"
	b, err := s.Records.Ingest(rec2)
	require.NoError(t, err)

	link := model.MatchLink{
		RecordA: a, RecordB: b,
		Confidence: decimal.RequireFromString("0.85"),
		Rule:       model.RuleExactAmount,
		Status:     model.LinkConfirmed,
	}
	require.NoError(t, s.Links.ReplacePair("run-1", "legacy", "receipts", []model.MatchLink{link}))
	require.NoError(t, s.Links.ReplacePair("run-2", "legacy", "receipts", []model.MatchLink{link}))

	confirmed, err := s.Links.Confirmed()
	require.NoError(t, err)
	require.Len(t, confirmed, 1, "rerun replaces, never accretes")
	assert.Equal(t, "run-2", confirmed[0].RunID)

	forA, err := s.Links.ForRecord(a)
	require.NoError(t, err)
	require.Len(t, forA, 1)
	assert.Equal(t, model.RuleExactAmount, forA[0].Rule)
}

func TestLinks_PairScopeIgnoresDirection(t *testing.T) {
	s := openTest(t)

	a, err := s.Records.Ingest(testRecord("A-1", "10.00", "2024-01-01"))
	require.NoError(t, err)
	rec2 := testRecord("B-1", "10.00", "2024-01-01")
	rec2.SourceSystem = "receipts"
	b, err := s.Records.Ingest(rec2)
	require.NoError(t, err)

	link := model.MatchLink{
		RecordA: a, RecordB: b,
		Confidence: decimal.RequireFromString("0.85"),
		Rule:       model.RuleExactAmount,
		Status:     model.LinkConfirmed,
	}
	require.NoError(t, s.Links.ReplacePair("run-1", "legacy", "receipts", []model.MatchLink{link}))
	require.NoError(t, s.Links.ReplacePair("run-2", "receipts", "legacy", []model.MatchLink{link}))

	assert.Equal(t, PairKey("legacy", "receipts"), PairKey("receipts", "legacy"))

	confirmed, err := s.Links.Confirmed()
	require.NoError(t, err)
	require.Len(t, confirmed, 1, "reversed order replaces the same scope")
	assert.Equal(t, "run-2", confirmed[0].RunID)
}

func TestGroups_ReplaceRoundTrip(t *testing.T) {
	s := openTest(t)

	id1, err := s.Records.Ingest(testRecord("D-1", "25.00", "2024-01-05"))
	require.NoError(t, err)
	id2, err := s.Records.Ingest(testRecord("D-2", "25.00", "2024-01-05"))
	require.NoError(t, err)

	grp := model.DuplicateGroup{Canonical: id1, Members: []int64{id1, id2}, ReasonCode: "same-day-amount"}
	require.NoError(t, s.Groups.Replace("legacy", []model.DuplicateGroup{grp}))
	require.NoError(t, s.Groups.Replace("legacy", []model.DuplicateGroup{grp}))

	got, err := s.Groups.BySource("legacy")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id1, got[0].Canonical)
	assert.Equal(t, []int64{id1, id2}, got[0].Members)
}

func TestRuns_Lifecycle(t *testing.T) {
	s := openTest(t)

	run, err := s.Runs.Start("sync")
	require.NoError(t, err)
	assert.Equal(t, model.RunProcessing, run.Status)

	require.NoError(t, s.Runs.Commit(run.ID, "fetched=3 upserted=3"))

	last, err := s.Runs.Last()
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, model.RunCommitted, last[0].Status)
	assert.Equal(t, "fetched=3 upserted=3", last[0].Summary)
}
