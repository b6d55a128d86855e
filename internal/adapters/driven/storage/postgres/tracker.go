// Package postgres provides a PostgreSQL QueryLedgerTracker.
//
// Reserve holds a session advisory lock keyed by the query id on a pooled
// connection, so nodes sharing one database serialise per query. Records
// rely on the primary key: a second insert affects no rows.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Ensure Tracker implements the interfaces.
var (
	_ driven.QueryLedgerTracker = (*Tracker)(nil)
	_ driven.CursorStore        = (*Tracker)(nil)
)

const unlockTimeout = 10 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS processed_queries (
    query_id TEXT PRIMARY KEY,
    transaction_digest TEXT NOT NULL,
    submitted_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS event_cursors (
    name TEXT PRIMARY KEY,
    cursor TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Tracker implements driven.QueryLedgerTracker on PostgreSQL.
type Tracker struct {
	pool *pgxpool.Pool
}

// NewTracker connects to dsn and ensures the schema exists.
func NewTracker(ctx context.Context, dsn string) (*Tracker, error) {
	if dsn == "" {
		return nil, &domain.ConfigError{Field: "tracker.postgres_dsn", Reason: "required"}
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Tracker{pool: pool}, nil
}

// Close closes the connection pool.
func (t *Tracker) Close() {
	t.pool.Close()
}

// Reserve takes a session advisory lock for queryID. The connection stays
// checked out until release.
func (t *Tracker) Reserve(ctx context.Context, queryID string) (func(), error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock(hashtext($1))", queryID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("locking query %s: %w", queryID, err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock(hashtext($1))", queryID); err != nil {
			// A session lock that cannot be released must not return to the pool.
			_ = conn.Conn().Close(ctx)
		}
		conn.Release()
	}, nil
}

// HasProcessed reports whether a row exists for queryID.
func (t *Tracker) HasProcessed(ctx context.Context, queryID string) (bool, error) {
	var exists bool
	err := t.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM processed_queries WHERE query_id = $1)", queryID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking processed query: %w", err)
	}
	return exists, nil
}

// Record inserts rec. An existing row for the id is left untouched.
func (t *Tracker) Record(ctx context.Context, rec domain.ProcessedQueryRecord) error {
	if rec.QueryID == "" {
		return domain.ErrInvalidInput
	}

	tag, err := t.pool.Exec(ctx, `
		INSERT INTO processed_queries (query_id, transaction_digest, submitted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (query_id) DO NOTHING
	`, rec.QueryID, rec.TransactionDigest, rec.SubmittedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording processed query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.DuplicateError{QueryID: rec.QueryID}
	}
	return nil
}

// Get returns the record for queryID.
func (t *Tracker) Get(ctx context.Context, queryID string) (*domain.ProcessedQueryRecord, error) {
	var rec domain.ProcessedQueryRecord
	err := t.pool.QueryRow(ctx, `
		SELECT query_id, transaction_digest, submitted_at
		FROM processed_queries WHERE query_id = $1
	`, queryID).Scan(&rec.QueryID, &rec.TransactionDigest, &rec.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting processed query: %w", err)
	}
	rec.SubmittedAt = rec.SubmittedAt.UTC()
	return &rec, nil
}

// LoadCursor returns the saved cursor for name, or "".
func (t *Tracker) LoadCursor(ctx context.Context, name string) (string, error) {
	var cursor string
	err := t.pool.QueryRow(ctx, "SELECT cursor FROM event_cursors WHERE name = $1", name).Scan(&cursor)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading cursor: %w", err)
	}
	return cursor, nil
}

// SaveCursor upserts cursor for name.
func (t *Tracker) SaveCursor(ctx context.Context, name, cursor string) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO event_cursors (name, cursor, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET
			cursor = EXCLUDED.cursor,
			updated_at = EXCLUDED.updated_at
	`, name, cursor)
	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}
