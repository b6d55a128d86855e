package driving

import (
	"context"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

// Pipeline processes one query end to end.
type Pipeline interface {
	// Process runs fetch, decrypt, chunk, retrieve, generate, attest and
	// submit for req. It always returns a result; failures are reported in
	// the result rather than as an error. Key material in req is wiped
	// before Process returns.
	Process(ctx context.Context, req domain.QueryRequest) *domain.PipelineResult
}

// AnswerGenerator produces answers from ranked context.
type AnswerGenerator interface {
	// Generate asks configured backends in priority order and returns the
	// first usable answer, or *domain.AllBackendsFailedError.
	Generate(ctx context.Context, chunks []domain.RankedChunk, question string) (*domain.Answer, error)

	// Health reports each backend and whether it is configured.
	Health() []domain.BackendStatus
}

// QuerySource discovers queries and delivers them for processing.
type QuerySource interface {
	// Name identifies the source in logs.
	Name() string

	// Run delivers requests to out until ctx is cancelled or a fatal
	// error occurs. It does not close out.
	Run(ctx context.Context, out chan<- domain.QueryRequest) error
}

// QueryRunner drains query sources through the pipeline.
type QueryRunner interface {
	// Run processes requests from all sources with bounded parallelism
	// until ctx is cancelled. In-flight runs finish before Run returns.
	Run(ctx context.Context, sources ...QuerySource) error
}
