// Package store owns all durable state for the tutoring relay: the
// per-conversation message log, the daily-word subscription table, and the
// dedup ledger of previously issued daily words.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store implements the record store on a single SQLite database.
//
// Message appends and daily-word inserts are independent write paths; a
// failure on one never blocks the other.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	logger *zap.Logger
}

// New opens (or creates) the SQLite database at path and ensures the schema.
func New(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("failed to set sqlite journal_mode=WAL", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logger.Debug("failed to set sqlite synchronous=NORMAL", zap.Error(err))
	}

	s := &Store{db: db, dbPath: path, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("store initialized", zap.String("path", path))
	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	// The autoincrement id doubles as a monotonic sequence number; reads
	// order by (timestamp, id) so rapid successive writes keep their
	// insertion order even on timestamp collisions.
	messagesTable := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	`

	subscriptionsTable := `
	CREATE TABLE IF NOT EXISTS subscriptions (
		conversation_id TEXT PRIMARY KEY,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);
	`

	// word UNIQUE is the dedup mechanism for daily-word generation; it is
	// the only guard that survives process restarts.
	dailyWordsTable := `
	CREATE TABLE IF NOT EXISTS daily_words (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		word TEXT NOT NULL UNIQUE,
		translation TEXT,
		usage_example TEXT,
		example_translation TEXT,
		pronunciation TEXT,
		date_added TEXT NOT NULL
	);
	`

	for _, schema := range []string{messagesTable, subscriptionsTable, dailyWordsTable} {
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
