package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is the evaluation log: batch runs and the per-row evaluations each
// run recorded. One Store may be shared by a batch runner writing a run and
// report commands reading earlier runs.
type Store struct {
	db *sql.DB
}

// logPragmas are applied on every Open. WAL lets `report` read a log while
// `run` appends to it; busy_timeout covers the brief overlap of two writers.
var logPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// migrations[v] upgrades an evaluation log from user_version v to v+1.
// schema.sql always creates the latest layout, so every step must be a no-op
// on a fresh database.
var migrations = []func(*sql.DB) error{
	addFallbackColumn, // 0 -> 1
}

// schemaVersion is the user_version of a fully migrated log.
var schemaVersion = len(migrations)

// Open opens the evaluation log at path, creating it if needed, and brings
// its schema up to date. Opening an existing log is safe.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open evaluation log %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open evaluation log %s: %w", path, err)
	}

	// Runs are written in one transaction; a single connection keeps SQLite
	// from reporting SQLITE_BUSY to our own goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range logPragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("open evaluation log %s: %q: %w", path, pragma, err)
		}
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open evaluation log %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the log. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrate creates the runs and evaluations tables and applies every pending
// migration.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for v := version; v < schemaVersion; v++ {
		if err := migrations[v](db); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// addFallbackColumn adds evaluations.fallback to logs written before decisions
// could come from the on_no_activation default.
func addFallbackColumn(db *sql.DB) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('evaluations') WHERE name = 'fallback'`).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = db.Exec(`ALTER TABLE evaluations ADD COLUMN fallback INTEGER NOT NULL DEFAULT 0`)
	return err
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
