package queue

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresConfig configures the Postgres/CockroachDB-backed queue
// store.
type PostgresConfig struct {
	DSN string
	Config
}

// DefaultPostgresConfig returns a PostgresConfig with sensible
// defaults, mirroring jobs.DefaultCockroachConfig.
func DefaultPostgresConfig(dsn string) PostgresConfig {
	return PostgresConfig{DSN: dsn, Config: DefaultConfig()}
}

// PostgresStore is a Store backed by Postgres or CockroachDB via
// lib/pq, modeled on jobs.CockroachStore.
type PostgresStore struct {
	*sqlStore
	db *sql.DB
}

// NewPostgresStoreFromDSN opens a connection pool and ensures the queue
// schema exists.
func NewPostgresStoreFromDSN(cfg PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("queue: open postgres: %w", err)
	}
	inner, err := newSQLStore(db, dollarPlaceholder, cfg.Config)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{sqlStore: inner, db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
