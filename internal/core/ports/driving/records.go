package driving

import (
	"context"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

// RecordService looks up queries the oracle has answered.
type RecordService interface {
	// Get returns the record for queryID, or domain.ErrNotFound.
	Get(ctx context.Context, queryID string) (*domain.ProcessedQueryRecord, error)
}
