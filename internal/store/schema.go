package store

// schema creates all tables. Dates are YYYY-MM-DD text, timestamps RFC3339
// text, amounts fixed two-decimal text.
const schema = `
-- Transaction records from every source system. Immutable: a re-sync marks
-- the old row superseded and inserts a new one, so the partial unique index
-- admits one live row per natural key while keeping history queryable.
CREATE TABLE IF NOT EXISTS records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_system TEXT NOT NULL,
    external_id TEXT NOT NULL,
    occurred_on TEXT NOT NULL,
    amount TEXT NOT NULL,
    counterparty_text TEXT NOT NULL DEFAULT '',
    counterparty_canon TEXT NOT NULL DEFAULT '',
    account_ref TEXT NOT NULL DEFAULT '',
    raw_payload TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active',
    quarantine_reason TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_records_natural_key
    ON records(source_system, external_id) WHERE status != 'superseded';

CREATE INDEX IF NOT EXISTS idx_records_account_day
    ON records(account_ref, occurred_on);

-- Match links between two record sets. A matcher run replaces the whole
-- pair scope, so regeneration is idempotent rather than accretive.
CREATE TABLE IF NOT EXISTS match_links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    pair_key TEXT NOT NULL,
    record_a INTEGER NOT NULL REFERENCES records(id),
    record_b INTEGER NOT NULL REFERENCES records(id),
    confidence TEXT NOT NULL,
    match_rule TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_match_links_pair ON match_links(pair_key);
CREATE INDEX IF NOT EXISTS idx_match_links_record_a ON match_links(record_a);
CREATE INDEX IF NOT EXISTS idx_match_links_record_b ON match_links(record_b);

-- Duplicate groups. Members stay in records; flagging never deletes.
CREATE TABLE IF NOT EXISTS duplicate_groups (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_system TEXT NOT NULL,
    canonical_record INTEGER NOT NULL REFERENCES records(id),
    reason_code TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS duplicate_members (
    group_id INTEGER NOT NULL REFERENCES duplicate_groups(id) ON DELETE CASCADE,
    member_record INTEGER NOT NULL REFERENCES records(id),
    PRIMARY KEY (group_id, member_record)
);

-- Ledger entries, generation-tagged. ledger_generations points at the
-- current generation per entity; a rebuild writes a fresh generation, swaps
-- the pointer, and retires the old rows inside one transaction.
CREATE TABLE IF NOT EXISTS ledger_entries (
    entity_ref TEXT NOT NULL,
    generation TEXT NOT NULL,
    seq INTEGER NOT NULL,
    entry_date TEXT NOT NULL,
    entry_type TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    amount TEXT NOT NULL,
    running_balance TEXT NOT NULL,
    source_ref TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (entity_ref, generation, seq)
);

CREATE TABLE IF NOT EXISTS ledger_generations (
    entity_ref TEXT PRIMARY KEY,
    generation TEXT NOT NULL,
    rebuilt_at TEXT NOT NULL
);

-- One watermark per entity type, advanced only after a committed batch.
CREATE TABLE IF NOT EXISTS watermarks (
    entity_type TEXT PRIMARY KEY,
    last_applied TEXT NOT NULL
);

-- Batch run audit trail: pending -> processing -> committed | aborted.
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    component TEXT NOT NULL,
    status TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    summary TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_component ON runs(component, started_at);
`
