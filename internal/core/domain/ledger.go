package domain

import "time"

// ProcessedQueryRecord is written once a query's answer is on the ledger.
// At most one record exists per QueryID.
type ProcessedQueryRecord struct {
	QueryID           string    `json:"query_id"`
	TransactionDigest string    `json:"transaction_digest"`
	SubmittedAt       time.Time `json:"submitted_at"`
}

// QueryEvent is a query discovered on the ledger, before key resolution.
// It carries no key material and may be persisted.
type QueryEvent struct {
	QueryID        string `json:"query_id"`
	DocumentBlobID string `json:"document_blob_id"`
	Question       string `json:"question"`
	Requester      string `json:"requester,omitempty"`
	Cursor         string `json:"cursor,omitempty"`
}
