// store.go — embedded relational persistence, modeled on
// aggregat4-prototype-lists/server/internal/storage/sqlite_store.go: a
// single write connection (WAL, busy_timeout) plus a pooled read-only
// connection, both against the same file.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
	"go.uber.org/zap"
)

// Store is the Store component from SPEC_FULL §4.1. It owns all persistent
// rows; nothing outside this package talks to the database directly.
type Store struct {
	dbWrite *sql.DB
	dbRead  *sql.DB
	path    string
	log     *zap.Logger
}

// Open creates (or attaches to) the SQLite file at path and runs migrations.
// Idempotent: calling Open twice against the same path is safe.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	write, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open write handle: %w", err)
	}
	write.SetMaxOpenConns(1)
	write.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := write.ExecContext(ctx, pragma); err != nil {
			_ = write.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", pragma, err)
		}
	}

	read, err := sql.Open("sqlite", path)
	if err != nil {
		_ = write.Close()
		return nil, fmt.Errorf("store: open read handle: %w", err)
	}
	read.SetMaxOpenConns(10)
	read.SetMaxIdleConns(10)
	for _, pragma := range []string{
		"PRAGMA query_only = ON;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA foreign_keys = ON;",
	} {
		if _, err := read.ExecContext(ctx, pragma); err != nil {
			_ = write.Close()
			_ = read.Close()
			return nil, fmt.Errorf("store: read pragma %q: %w", pragma, err)
		}
	}

	s := &Store{dbWrite: write, dbRead: read, path: path, log: log}
	if err := s.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases both connections.
func (s *Store) Close() error {
	var firstErr error
	if s.dbWrite != nil {
		if err := s.dbWrite.Close(); err != nil {
			firstErr = err
		}
	}
	if s.dbRead != nil {
		if err := s.dbRead.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// withTx runs fn inside a write transaction. A failure leaves the store
// exactly as before the call (§4.1 contract): the transaction is rolled
// back and no partial effect is visible.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.dbWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrPersistenceFailed, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistenceFailed, err)
	}
	return nil
}
