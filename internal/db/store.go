package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/presetvault/internal/errors"
)

// Store is the SQLite metadata store. Every mutating method runs in a
// single transaction, so indices never diverge from the presets table.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database (see Init).
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewIOFailure("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewIOFailure("commit transaction", err)
	}
	return nil
}

// nextSeq returns one past the largest seq in an ordered index table.
// table is always a package constant, never user input.
func nextSeq(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	var seq int64
	err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) + 1 FROM "+table).Scan(&seq)
	if err != nil {
		return 0, errors.NewIOFailure("read "+table+" sequence", err)
	}
	return seq, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
