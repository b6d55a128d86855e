package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// tracker implements driven.QueryLedgerTracker.
type tracker struct {
	store *Store
}

var _ driven.QueryLedgerTracker = (*tracker)(nil)

// Reserve takes the in-process lock for queryID.
func (t *tracker) Reserve(ctx context.Context, queryID string) (func(), error) {
	return t.store.locks.Acquire(ctx, queryID)
}

// HasProcessed reports whether queryID has a record.
func (t *tracker) HasProcessed(ctx context.Context, queryID string) (bool, error) {
	var one int
	err := t.store.db.QueryRowContext(ctx,
		"SELECT 1 FROM processed_queries WHERE query_id = ?", queryID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking processed query: %w", err)
	}
	return true, nil
}

// Record inserts rec. An existing row for the id is left untouched.
func (t *tracker) Record(ctx context.Context, rec domain.ProcessedQueryRecord) error {
	if rec.QueryID == "" {
		return domain.ErrInvalidInput
	}

	result, err := t.store.db.ExecContext(ctx, `
		INSERT INTO processed_queries (query_id, transaction_digest, submitted_at)
		VALUES (?, ?, ?)
		ON CONFLICT(query_id) DO NOTHING
	`, rec.QueryID, rec.TransactionDigest, rec.SubmittedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("recording processed query: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording processed query: %w", err)
	}
	if n == 0 {
		return &domain.DuplicateError{QueryID: rec.QueryID}
	}
	return nil
}

// Get returns the record for queryID.
func (t *tracker) Get(ctx context.Context, queryID string) (*domain.ProcessedQueryRecord, error) {
	var rec domain.ProcessedQueryRecord
	var submittedAt string

	err := t.store.db.QueryRowContext(ctx, `
		SELECT query_id, transaction_digest, submitted_at
		FROM processed_queries WHERE query_id = ?
	`, queryID).Scan(&rec.QueryID, &rec.TransactionDigest, &submittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting processed query: %w", err)
	}

	rec.SubmittedAt, err = time.Parse(time.RFC3339Nano, submittedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing submitted_at: %w", err)
	}
	return &rec, nil
}

// cursorStore implements driven.CursorStore.
type cursorStore struct {
	store *Store
}

var _ driven.CursorStore = (*cursorStore)(nil)

// LoadCursor returns the saved cursor for name, or "".
func (c *cursorStore) LoadCursor(ctx context.Context, name string) (string, error) {
	var cursor string
	err := c.store.db.QueryRowContext(ctx,
		"SELECT cursor FROM event_cursors WHERE name = ?", name).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading cursor: %w", err)
	}
	return cursor, nil
}

// SaveCursor upserts cursor for name.
func (c *cursorStore) SaveCursor(ctx context.Context, name, cursor string) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO event_cursors (name, cursor, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			cursor = excluded.cursor,
			updated_at = excluded.updated_at
	`, name, cursor, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}
