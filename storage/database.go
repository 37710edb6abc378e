// Package storage is the session-scoped cache behind the notification
// synchronizer: the last good snapshot for degraded mode, and the ledger of
// locally seen ids that keeps seen-state sticky across snapshot reloads.
//
// The cache lives in memory by default and disappears with the session.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// memoryDSN keeps the cache session-scoped; one pooled connection so every
// query sees the same in-memory database.
const memoryDSN = ":memory:"

var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS notification_cache (
  notification_id TEXT PRIMARY KEY,
  type            TEXT NOT NULL,
  text            TEXT NOT NULL,
  created_at_utc  INTEGER NOT NULL,
  seen            INTEGER NOT NULL DEFAULT 0
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_notification_cache_created
ON notification_cache (created_at_utc DESC, notification_id);
`,
	`
CREATE TABLE IF NOT EXISTS seen_notification_ids (
  notification_id TEXT PRIMARY KEY,
  marked_at       INTEGER NOT NULL
);
`,
}

// Store is a thin wrapper around a SQLite connection.
type Store struct {
	db        *sql.DB
	closeOnce sync.Once
}

// Open opens the session cache. In-memory by default; the
// CAMPUS_CHAT_CACHE_PATH environment variable points it at a file for
// debugging sessions.
func Open() (*Store, error) {
	path := os.Getenv("CAMPUS_CHAT_CACHE_PATH")
	if path == "" {
		return OpenPath(memoryDSN)
	}
	return OpenPath(path)
}

// OpenPath opens SQLite at an explicit path (or :memory:) and runs schema
// migrations.
func OpenPath(dbPath string) (*Store, error) {
	dsn := dbPath
	if dsn != memoryDSN {
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.ToSlash(dbPath))
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps the in-memory database visible to every query.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	var closeErr error
	s.closeOnce.Do(func() {
		closeErr = s.db.Close()
		s.db = nil
	})
	return closeErr
}

func (s *Store) applyMigrations() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version >= len(migrations) {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := version; i < len(migrations); i++ {
		if _, err := tx.Exec(migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d;", i+1)); err != nil {
			return fmt.Errorf("set schema version %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration transaction: %w", err)
	}

	return nil
}
