// Package sqlstore implements storage.Storage on a single kv_store table in PostgreSQL
// or MySQL. SetIfAbsent is an INSERT that ignores primary key conflicts; the affected
// row count tells whether this caller's row landed.
//
// Schema (see migrations/):
//   - store_key: VARCHAR(512) / VARBINARY(512) PRIMARY KEY, case-sensitive
//   - store_value: BYTEA / LONGBLOB
//   - created_at, updated_at
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/allisson/kagimori/internal/storage"
)

type queries struct {
	get         string
	exists      string
	set         string
	setIfAbsent string
	delete      string
}

// Store is a SQL-backed storage.Storage.
type Store struct {
	db      *sql.DB
	queries queries
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidKey
	}
	if _, err := s.db.ExecContext(ctx, s.queries.set, key, nonNil(value)); err != nil {
		return fmt.Errorf("%w: set %s: %w", storage.ErrUnavailable, key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.queries.get, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get %s: %w", storage.ErrUnavailable, key, err)
	}
	return nonNil(value), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.queries.delete, key); err != nil {
		return fmt.Errorf("%w: delete %s: %w", storage.ErrUnavailable, key, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.queries.exists, key).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%w: exists %s: %w", storage.ErrUnavailable, key, err)
	}
	return true, nil
}

func (s *Store) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if key == "" {
		return false, storage.ErrInvalidKey
	}

	result, err := s.db.ExecContext(ctx, s.queries.setIfAbsent, key, nonNil(value))
	if err != nil {
		return false, fmt.Errorf("%w: set-if-absent %s: %w", storage.ErrUnavailable, key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: set-if-absent %s: %w", storage.ErrUnavailable, key, err)
	}
	return affected == 1, nil
}

// nonNil keeps empty values distinguishable from SQL NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
