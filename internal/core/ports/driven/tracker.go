package driven

import (
	"context"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

// QueryLedgerTracker is the single authority for whether a query has been
// finalised on the ledger. It is the one resource shared across pipeline runs.
type QueryLedgerTracker interface {
	// Reserve enters the exclusive section for queryID. Until release is
	// called, no other Reserve for the same id returns. The caller performs
	// HasProcessed, the ledger submission and Record inside this section.
	Reserve(ctx context.Context, queryID string) (release func(), err error)

	// HasProcessed reports whether a record exists for queryID.
	HasProcessed(ctx context.Context, queryID string) (bool, error)

	// Record stores the record. A second call for the same id returns
	// *domain.DuplicateError.
	Record(ctx context.Context, rec domain.ProcessedQueryRecord) error

	// Get returns the record for queryID, or domain.ErrNotFound.
	Get(ctx context.Context, queryID string) (*domain.ProcessedQueryRecord, error)
}
