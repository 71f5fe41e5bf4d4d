// Package store persists test records in Postgres. Records are keyed by
// fingerprint, so a replayed candidate upserts instead of duplicating.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Status values for a test record.
const (
	StatusInvalidChecksum = "invalid_checksum"
	StatusNoBalance       = "tested_no_balance"
	StatusFunded          = "tested_funded"
	StatusDeferred        = "deferred_retry"
	StatusError           = "error"
)

// Record is the durable outcome of one candidate.
type Record struct {
	Fingerprint string
	Mnemonic    string
	Status      string
	Method      string
	Accounts    []string
	Balance     int64
}

// Stats summarizes recovery progress.
type Stats struct {
	TotalTested  int64
	WalletsFound int64
	TotalBalance int64
}

// Store wraps the Postgres connection pool and prepared statements.
type Store struct {
	db     *sql.DB
	upsert *sql.Stmt
}

// Open connects to dsn and prepares statements. maxConns should match the
// worker count so workers never queue on the pool.
func Open(dsn string, maxConns int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS test_records (
			fingerprint TEXT PRIMARY KEY,
			mnemonic    TEXT NOT NULL,
			status      TEXT NOT NULL,
			method      TEXT,
			accounts    TEXT[],
			balance     BIGINT DEFAULT 0,
			created_at  TIMESTAMPTZ DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("creating test_records table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_test_records_funded
		ON test_records(balance) WHERE balance > 0`)
	if err != nil {
		return fmt.Errorf("creating funded index: %w", err)
	}

	s.upsert, err = s.db.Prepare(`
		INSERT INTO test_records (fingerprint, mnemonic, status, method, accounts, balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fingerprint)
		DO UPDATE SET status = EXCLUDED.status, method = EXCLUDED.method,
		              accounts = EXCLUDED.accounts, balance = EXCLUDED.balance`)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	return nil
}

// Save persists one record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	_, err := s.upsert.ExecContext(ctx, rec.Fingerprint, rec.Mnemonic, rec.Status,
		rec.Method, pq.Array(rec.Accounts), rec.Balance)
	if err != nil {
		return fmt.Errorf("saving test record: %w", err)
	}
	return nil
}

// SaveBatch persists records inside a single transaction.
func (s *Store) SaveBatch(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	stmt := tx.StmtContext(ctx, s.upsert)
	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, rec.Fingerprint, rec.Mnemonic, rec.Status,
			rec.Method, pq.Array(rec.Accounts), rec.Balance); err != nil {
			tx.Rollback()
			return fmt.Errorf("saving test record batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return fmt.Errorf("committing test record batch: %w", err)
	}
	return nil
}

// Stats reports how many candidates were tested and what was found.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE balance > 0),
		       COALESCE(SUM(balance), 0)
		FROM test_records`).Scan(&st.TotalTested, &st.WalletsFound, &st.TotalBalance)
	if err != nil {
		return Stats{}, fmt.Errorf("querying stats: %w", err)
	}
	return st, nil
}

// Close releases the prepared statements and the pool.
func (s *Store) Close() error {
	if s.upsert != nil {
		s.upsert.Close()
	}
	return s.db.Close()
}
