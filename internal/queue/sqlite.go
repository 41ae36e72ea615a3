package queue

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteConfig configures the pure-Go SQLite-backed queue store, used
// for embedded or single-process deployments that don't want an
// external database.
type SQLiteConfig struct {
	Path string // file path, or ":memory:"
	Config
}

// DefaultSQLiteConfig returns a SQLiteConfig with sensible defaults.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{Path: path, Config: DefaultConfig()}
}

// SQLiteStore is a Store backed by modernc.org/sqlite.
type SQLiteStore struct {
	*sqlStore
	db *sql.DB
}

// NewSQLiteStore opens the database file (creating it if necessary)
// and ensures the queue schema exists.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("queue: open sqlite: %w", err)
	}
	// The queue is single-writer per thread but the driver itself only
	// tolerates one writer connection at a time.
	db.SetMaxOpenConns(1)
	inner, err := newSQLStore(db, questionPlaceholder, cfg.Config)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{sqlStore: inner, db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
