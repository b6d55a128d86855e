package domain

// PipelineState is a stage of the query-processing state machine.
type PipelineState string

// Pipeline states in execution order, followed by the terminal states.
const (
	StateFetching         PipelineState = "fetching"
	StateDecrypting       PipelineState = "decrypting"
	StateChunking         PipelineState = "chunking"
	StateRetrieving       PipelineState = "retrieving"
	StateGenerating       PipelineState = "generating"
	StateAttesting        PipelineState = "attesting"
	StateSubmitting       PipelineState = "submitting"
	StateRecorded         PipelineState = "recorded"
	StateFailed           PipelineState = "failed"
	StateSkippedDuplicate PipelineState = "skipped_duplicate"
)

// IsTerminal returns true for states that end a run.
func (s PipelineState) IsTerminal() bool {
	return s == StateRecorded || s == StateFailed || s == StateSkippedDuplicate
}

// String returns the string representation.
func (s PipelineState) String() string {
	return string(s)
}

// FailureKind tags why a run ended in StateFailed.
type FailureKind string

// Failure kinds, one per error family.
const (
	FailureNone         FailureKind = ""
	FailureInvalidInput FailureKind = "invalid_input"
	FailureFetch        FailureKind = "fetch"
	FailureDecryption   FailureKind = "decryption"
	FailureConfig       FailureKind = "config"
	FailureGeneration   FailureKind = "all_backends_failed"
	FailureSubmission   FailureKind = "submission"
	FailureDuplicate    FailureKind = "duplicate"
	FailureTracker      FailureKind = "tracker"
	FailureCancelled    FailureKind = "cancelled"
)

// PipelineResult is the tagged outcome of one pipeline run.
type PipelineResult struct {
	// RunID correlates log lines for this run.
	RunID string `json:"run_id"`

	QueryID string        `json:"query_id"`
	State   PipelineState `json:"state"`

	// FailedAt is the stage that was active when the run failed.
	FailedAt PipelineState `json:"failed_at,omitempty"`
	Failure  FailureKind   `json:"failure,omitempty"`

	TransactionDigest string       `json:"transaction_digest,omitempty"`
	Answer            *Answer      `json:"answer,omitempty"`
	Attestation       *Attestation `json:"attestation,omitempty"`

	// Err is the terminal error for failed runs.
	Err error `json:"-"`
}

// Succeeded returns true if the answer was submitted and recorded.
func (r *PipelineResult) Succeeded() bool {
	return r.State == StateRecorded
}
