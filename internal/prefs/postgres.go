package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps preferences in a ui_preferences table so they follow an
// administrator across machines.
type PostgresStore struct {
	pool  *pgxpool.Pool
	scope string
}

const createPreferencesTable = `CREATE TABLE IF NOT EXISTS ui_preferences (
	scope      TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (scope, key)
)`

// ConnectPostgres opens a pool, verifies it and makes sure the table exists.
// scope separates preferences of different administrators sharing one database.
func ConnectPostgres(ctx context.Context, databaseURL, scope string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, createPreferencesTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create ui_preferences table: %w", err)
	}

	return &PostgresStore{pool: pool, scope: scope}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM ui_preferences WHERE scope = $1 AND key = $2`,
		s.scope, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &StoreError{Backend: "postgres", Op: "get", Key: key, Cause: err}
	}
	return value, nil
}

// Set implements Store.
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ui_preferences (scope, key, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (scope, key) DO UPDATE SET value = $3, updated_at = NOW()`,
		s.scope, key, value,
	)
	if err != nil {
		return &StoreError{Backend: "postgres", Op: "set", Key: key, Cause: err}
	}
	return nil
}
