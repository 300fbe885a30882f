// Package store is the typed SQLite repository layer. All SQL lives here;
// components see repositories returning domain types, never hand-built query
// strings.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Config enumerates the database settings, constructed once per process and
// passed by reference to every component.
type Config struct {
	// Path is the SQLite database file. ":memory:" is valid for tests.
	Path string
	// PoolSize bounds open connections. Zero means a single connection,
	// which is also what :memory: databases require.
	PoolSize int
	// BusyTimeoutMS is how long a writer waits on a locked database.
	BusyTimeoutMS int
}

// DB wraps the SQLite handle with transaction and schema helpers.
type DB struct {
	sql  *sql.DB
	path string
}

// Open opens the database, applies WAL mode and foreign keys, and ensures
// the schema exists.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path not configured")
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	busy := cfg.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d", cfg.Path, busy)
	handle, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pool := cfg.PoolSize
	if pool <= 0 {
		pool = 1
	}
	handle.SetMaxOpenConns(pool)

	if err := handle.Ping(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &DB{sql: handle, path: cfg.Path}
	if _, err := handle.Exec(schema); err != nil {
		handle.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return db, nil
}

// Close closes the underlying handle.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Transaction runs fn inside a transaction: rollback on error or panic,
// commit otherwise. Nothing a run writes is durable until this commit, which
// is what makes mid-batch aborts side-effect free.
func (d *DB) Transaction(fn func(*sql.Tx) error) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction: %v, rollback: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (d *DB) query(q string, args ...any) (*sql.Rows, error) {
	return d.sql.Query(q, args...)
}

func (d *DB) queryRow(q string, args ...any) *sql.Row {
	return d.sql.QueryRow(q, args...)
}

func (d *DB) exec(q string, args ...any) (sql.Result, error) {
	return d.sql.Exec(q, args...)
}
