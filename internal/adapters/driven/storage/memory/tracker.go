// Package memory provides in-process implementations of the config store
// and the processed-query tracker.
package memory

import (
	"context"
	"sync"

	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/storage"
	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Ensure Tracker implements the interfaces.
var (
	_ driven.QueryLedgerTracker = (*Tracker)(nil)
	_ driven.CursorStore        = (*Tracker)(nil)
)

// Tracker is an in-memory implementation of driven.QueryLedgerTracker.
// Records are lost on restart.
type Tracker struct {
	locks storage.KeyedLock

	mu      sync.RWMutex
	records map[string]domain.ProcessedQueryRecord
	cursors map[string]string
}

// NewTracker creates a new in-memory tracker.
func NewTracker() *Tracker {
	return &Tracker{
		records: make(map[string]domain.ProcessedQueryRecord),
		cursors: make(map[string]string),
	}
}

// Reserve takes the per-query lock.
func (t *Tracker) Reserve(ctx context.Context, queryID string) (func(), error) {
	return t.locks.Acquire(ctx, queryID)
}

// HasProcessed reports whether queryID has a record.
func (t *Tracker) HasProcessed(_ context.Context, queryID string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.records[queryID]
	return ok, nil
}

// Record stores rec, failing if the query already has one.
func (t *Tracker) Record(_ context.Context, rec domain.ProcessedQueryRecord) error {
	if rec.QueryID == "" {
		return domain.ErrInvalidInput
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.records[rec.QueryID]; ok {
		return &domain.DuplicateError{QueryID: rec.QueryID}
	}
	t.records[rec.QueryID] = rec
	return nil
}

// Get returns the record for queryID.
func (t *Tracker) Get(_ context.Context, queryID string) (*domain.ProcessedQueryRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[queryID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// LoadCursor returns the saved cursor for name.
func (t *Tracker) LoadCursor(_ context.Context, name string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursors[name], nil
}

// SaveCursor stores cursor for name.
func (t *Tracker) SaveCursor(_ context.Context, name, cursor string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursors[name] = cursor
	return nil
}

// Count returns the number of records.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
