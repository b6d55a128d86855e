package driven

import (
	"context"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

// LedgerSubmitter writes signed answers to the external ledger.
type LedgerSubmitter interface {
	// Submit sends one write transaction and returns its digest.
	// Failures are reported as *domain.SubmissionError.
	Submit(ctx context.Context, queryID, answerText string, att domain.Attestation) (string, error)
}

// LedgerEventReader lists queries submitted to the ledger.
type LedgerEventReader interface {
	// QueryEvents returns events after cursor (empty for the beginning) and
	// the cursor to resume from.
	QueryEvents(ctx context.Context, cursor string, limit int) ([]domain.QueryEvent, string, error)
}
