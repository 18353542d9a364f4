// Package db provides PostgreSQL storage for finished interview reports.
package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS interview_reports (
	id             UUID PRIMARY KEY,
	session_id     UUID NOT NULL,
	candidate_name TEXT NOT NULL,
	level          TEXT NOT NULL,
	focus          TEXT NOT NULL,
	duration       INTEGER NOT NULL,
	score          INTEGER NOT NULL,
	resume         JSONB NOT NULL,
	transcript     JSONB NOT NULL,
	feedback       JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS interview_reports_created_at_idx ON interview_reports (created_at DESC);
`

// EnsureSchema creates the reports table if it does not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return errors.Wrap(err, "failed to create schema")
	}
	return nil
}
