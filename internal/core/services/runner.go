package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driving"
	"github.com/anynomousfriend/Fathom-0x/internal/logger"
)

// Verify interface compliance.
var _ driving.QueryRunner = (*Runner)(nil)

// ResultHandler observes finished pipeline runs.
type ResultHandler func(*domain.PipelineResult)

// Runner drains query sources through a pipeline with bounded parallelism.
type Runner struct {
	pipeline    driving.Pipeline
	concurrency int
	onResult    ResultHandler
}

// NewRunner creates a runner. concurrency below 1 runs one query at a time.
func NewRunner(pipeline driving.Pipeline, concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		pipeline:    pipeline,
		concurrency: concurrency,
		onResult:    logResult,
	}
}

// OnResult replaces the handler called after each run.
func (r *Runner) OnResult(fn ResultHandler) {
	if fn == nil {
		fn = logResult
	}
	r.onResult = fn
}

// Run implements driving.QueryRunner. It returns once every source has
// stopped and every accepted request has been processed. A source failing
// with anything other than cancellation stops the other sources and is
// returned.
func (r *Runner) Run(ctx context.Context, sources ...driving.QuerySource) error {
	if len(sources) == 0 {
		return errors.New("runner: no query sources")
	}

	requests := make(chan domain.QueryRequest)
	sourceGroup, sourceCtx := errgroup.WithContext(ctx)
	for _, src := range sources {
		sourceGroup.Go(func() error {
			logger.Debug("runner: starting source %s", src.Name())
			err := src.Run(sourceCtx, requests)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("source %s: %w", src.Name(), err)
			}
			return nil
		})
	}

	sourcesDone := make(chan error, 1)
	go func() {
		sourcesDone <- sourceGroup.Wait()
		close(requests)
	}()

	var workers errgroup.Group
	workers.SetLimit(r.concurrency)
	for req := range requests {
		workers.Go(func() error {
			r.onResult(r.pipeline.Process(ctx, req))
			return nil
		})
	}
	_ = workers.Wait()

	return <-sourcesDone
}

func logResult(res *domain.PipelineResult) {
	log := logger.With(
		zap.String("run_id", res.RunID),
		zap.String("query_id", res.QueryID),
		zap.String("state", res.State.String()),
	)
	switch res.State {
	case domain.StateRecorded:
		log.Info("query answered", zap.String("tx_digest", res.TransactionDigest))
	case domain.StateSkippedDuplicate:
		log.Info("query skipped, already answered")
	default:
		log.Error("query failed",
			zap.String("failed_at", res.FailedAt.String()),
			zap.String("failure", string(res.Failure)),
			zap.Error(res.Err))
	}
}
