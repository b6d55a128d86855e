package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driving"
)

// Ensure RecordService implements the interface.
var _ driving.RecordService = (*RecordService)(nil)

// RecordService reads processed-query records from the tracker.
type RecordService struct {
	tracker driven.QueryLedgerTracker
}

// NewRecordService creates a record service.
func NewRecordService(tracker driven.QueryLedgerTracker) *RecordService {
	return &RecordService{tracker: tracker}
}

// Get implements driving.RecordService.
func (s *RecordService) Get(ctx context.Context, queryID string) (*domain.ProcessedQueryRecord, error) {
	queryID = strings.TrimSpace(queryID)
	if queryID == "" {
		return nil, fmt.Errorf("%w: query id is required", domain.ErrInvalidInput)
	}
	return s.tracker.Get(ctx, queryID)
}
