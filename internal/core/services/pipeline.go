package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driving"
	"github.com/anynomousfriend/Fathom-0x/internal/logger"
)

// Verify interface compliance.
var _ driving.Pipeline = (*Pipeline)(nil)

// PipelineDeps are the components a pipeline run drives. All are required.
type PipelineDeps struct {
	Store     driven.BlobStore
	Decryptor driven.Decryptor
	Chunker   driven.Chunker
	Retriever driven.Retriever
	Generator driving.AnswerGenerator
	Attestor  driven.Attestor
	Submitter driven.LedgerSubmitter
	Tracker   driven.QueryLedgerTracker
}

func (d PipelineDeps) validate() error {
	missing := func(name string) error {
		return fmt.Errorf("pipeline: missing %s", name)
	}
	switch {
	case d.Store == nil:
		return missing("blob store")
	case d.Decryptor == nil:
		return missing("decryptor")
	case d.Chunker == nil:
		return missing("chunker")
	case d.Retriever == nil:
		return missing("retriever")
	case d.Generator == nil:
		return missing("generator")
	case d.Attestor == nil:
		return missing("attestor")
	case d.Submitter == nil:
		return missing("submitter")
	case d.Tracker == nil:
		return missing("tracker")
	}
	return nil
}

// Pipeline runs the query state machine:
// fetching, decrypting, chunking, retrieving, generating, attesting,
// submitting, then recorded. Any stage error ends the run in failed, and a
// query already on the ledger ends it in skipped_duplicate.
type Pipeline struct {
	deps     PipelineDeps
	settings domain.PipelineSettings

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates a pipeline. Zero retry settings fall back to defaults;
// chunk parameters are passed through so that invalid values surface as a
// config failure on each run.
func NewPipeline(deps PipelineDeps, settings domain.PipelineSettings) (*Pipeline, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	defaults := domain.DefaultOracleSettings().Pipeline
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = defaults.MaxAttempts
	}
	if settings.BaseBackoff <= 0 {
		settings.BaseBackoff = defaults.BaseBackoff
	}
	if settings.MaxBackoff <= 0 {
		settings.MaxBackoff = defaults.MaxBackoff
	}

	return &Pipeline{
		deps:     deps,
		settings: settings,
		now:      time.Now,
		sleep:    sleepContext,
	}, nil
}

// run carries the per-query state of one Process call.
type run struct {
	result *domain.PipelineResult
	log    *zap.Logger
}

func (r *run) enter(state domain.PipelineState) {
	r.result.State = state
	r.log.Debug("pipeline state", zap.String("state", state.String()))
}

func (r *run) fail(kind domain.FailureKind, err error) *domain.PipelineResult {
	r.result.FailedAt = r.result.State
	r.result.State = domain.StateFailed
	r.result.Failure = kind
	r.result.Err = err
	r.log.Warn("pipeline failed",
		zap.String("failed_at", r.result.FailedAt.String()),
		zap.String("failure", string(kind)),
		zap.Error(err))
	return r.result
}

// Process implements driving.Pipeline.
func (p *Pipeline) Process(ctx context.Context, req domain.QueryRequest) *domain.PipelineResult {
	defer req.Wipe()

	runID := uuid.NewString()
	r := &run{
		result: &domain.PipelineResult{RunID: runID, QueryID: req.QueryID},
		log:    logger.With(zap.String("run_id", runID), zap.String("query_id", req.QueryID)),
	}

	r.enter(domain.StateFetching)
	if err := req.Validate(); err != nil {
		return r.fail(domain.FailureInvalidInput, err)
	}
	if err := ctx.Err(); err != nil {
		return r.fail(domain.FailureCancelled, err)
	}
	if p.alreadyProcessed(ctx, r, req.QueryID) {
		r.result.State = domain.StateSkippedDuplicate
		r.log.Info("query already processed, skipping")
		return r.result
	}

	var blob *domain.EncryptedBlob
	err := p.retry(ctx, r, func(ctx context.Context) error {
		var fetchErr error
		blob, fetchErr = p.deps.Store.Fetch(ctx, req.DocumentBlobID)
		return fetchErr
	})
	if err != nil {
		return r.fail(classify(ctx, err, domain.FailureFetch), err)
	}

	answer, err := p.answer(ctx, r, &req, blob)
	if err != nil {
		return r.fail(classify(ctx, err, domain.FailureGeneration), err)
	}
	r.result.Answer = answer

	r.enter(domain.StateAttesting)
	if err := ctx.Err(); err != nil {
		return r.fail(domain.FailureCancelled, err)
	}
	att := p.deps.Attestor.Attest(req.QueryID, req.DocumentBlobID, answer.Text, p.now().UTC())
	r.result.Attestation = &att

	return p.submit(ctx, r, req.QueryID, answer.Text, att)
}

// alreadyProcessed is the early duplicate check that saves a fetch and a
// generation call for repeat deliveries. A tracker error is not fatal here;
// the check under Reserve in submit decides.
func (p *Pipeline) alreadyProcessed(ctx context.Context, r *run, queryID string) bool {
	processed, err := p.deps.Tracker.HasProcessed(ctx, queryID)
	if err != nil {
		r.log.Warn("early duplicate check failed", zap.Error(err))
		return false
	}
	return processed
}

// answer runs the stages that see plaintext. The document and the key
// material are wiped before it returns, whatever the outcome.
func (p *Pipeline) answer(
	ctx context.Context,
	r *run,
	req *domain.QueryRequest,
	blob *domain.EncryptedBlob,
) (*domain.Answer, error) {
	var doc *domain.PlaintextDocument
	defer func() {
		doc.Zeroize()
		req.Wipe()
	}()

	r.enter(domain.StateDecrypting)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := p.deps.Decryptor.Decrypt(blob.Data, req.DecryptionKey, req.IV)
	if err != nil {
		return nil, err
	}

	r.enter(domain.StateChunking)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chunks, err := p.deps.Chunker.Chunk(doc.Text, p.settings.ChunkSize, p.settings.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	r.enter(domain.StateRetrieving)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ranked := p.deps.Retriever.Rank(chunks, req.Question, p.settings.TopK)
	r.log.Debug("chunks selected",
		zap.Int("chunks", len(chunks)),
		zap.Ints("selected", domain.ChunkIndices(ranked)))

	r.enter(domain.StateGenerating)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	answer, err := p.deps.Generator.Generate(ctx, ranked, req.Question)
	if err != nil {
		return nil, err
	}
	answer.DocumentLength = doc.Len()
	r.log.Info("answer generated",
		zap.String("backend", answer.Backend),
		zap.Int("chunks_used", answer.ChunksUsed))
	return answer, nil
}

// submit performs the duplicate check, the ledger write and the record as one
// exclusive section for the query id. Once the check passes, the write and
// the record run to completion even if ctx is cancelled.
func (p *Pipeline) submit(
	ctx context.Context,
	r *run,
	queryID, answerText string,
	att domain.Attestation,
) *domain.PipelineResult {
	r.enter(domain.StateSubmitting)
	if err := ctx.Err(); err != nil {
		return r.fail(domain.FailureCancelled, err)
	}

	release, err := p.deps.Tracker.Reserve(ctx, queryID)
	if err != nil {
		return r.fail(classify(ctx, err, domain.FailureTracker), fmt.Errorf("reserving query: %w", err))
	}
	defer release()

	processed, err := p.deps.Tracker.HasProcessed(ctx, queryID)
	if err != nil {
		return r.fail(classify(ctx, err, domain.FailureTracker), fmt.Errorf("checking query: %w", err))
	}
	if processed {
		r.result.State = domain.StateSkippedDuplicate
		r.log.Info("query already processed, skipping submission")
		return r.result
	}

	uncancelled := context.WithoutCancel(ctx)

	var digest string
	err = p.retry(uncancelled, r, func(ctx context.Context) error {
		var submitErr error
		digest, submitErr = p.deps.Submitter.Submit(ctx, queryID, answerText, att)
		return submitErr
	})
	if err != nil {
		return r.fail(classify(uncancelled, err, domain.FailureSubmission), err)
	}
	r.result.TransactionDigest = digest

	rec := domain.ProcessedQueryRecord{
		QueryID:           queryID,
		TransactionDigest: digest,
		SubmittedAt:       p.now().UTC(),
	}
	if err := p.deps.Tracker.Record(uncancelled, rec); err != nil {
		r.log.Error("answer submitted but not recorded", zap.String("tx_digest", digest), zap.Error(err))
		return r.fail(classify(uncancelled, err, domain.FailureTracker), fmt.Errorf("recording query: %w", err))
	}

	r.result.State = domain.StateRecorded
	r.log.Info("answer recorded", zap.String("tx_digest", digest))
	return r.result
}

// retry calls fn until it succeeds, fails with a non-retryable error or the
// attempt budget is spent. Backoff doubles from BaseBackoff up to MaxBackoff.
func (p *Pipeline) retry(ctx context.Context, r *run, fn func(context.Context) error) error {
	delay := p.settings.BaseBackoff
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || !domain.IsRetryable(err) || attempt >= p.settings.MaxAttempts {
			return err
		}

		r.log.Warn("transient failure, retrying",
			zap.String("state", r.result.State.String()),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))

		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		delay = min(delay*2, p.settings.MaxBackoff)
	}
}

// classify maps a stage error to its failure kind. fallback is used for
// errors outside the typed families.
func classify(ctx context.Context, err error, fallback domain.FailureKind) domain.FailureKind {
	var (
		fetchErr     *domain.FetchError
		decryptErr   *domain.DecryptionError
		configErr    *domain.ConfigError
		generateErr  *domain.AllBackendsFailedError
		submitErr    *domain.SubmissionError
		duplicateErr *domain.DuplicateError
	)
	switch {
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return domain.FailureCancelled
	case errors.As(err, &fetchErr):
		return domain.FailureFetch
	case errors.As(err, &decryptErr):
		return domain.FailureDecryption
	case errors.As(err, &configErr):
		return domain.FailureConfig
	case errors.As(err, &generateErr):
		return domain.FailureGeneration
	case errors.As(err, &submitErr):
		return domain.FailureSubmission
	case errors.As(err, &duplicateErr):
		return domain.FailureDuplicate
	case errors.Is(err, domain.ErrInvalidInput):
		return domain.FailureInvalidInput
	}
	return fallback
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
