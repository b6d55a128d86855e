package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driving"
	"github.com/anynomousfriend/Fathom-0x/internal/logger"
)

// Verify interface compliance.
var _ driving.AnswerGenerator = (*Generator)(nil)

// DefaultBackendTimeout bounds a backend call when none is configured.
const DefaultBackendTimeout = 60 * time.Second

// contextSeparator joins selected chunk texts into the generation context.
const contextSeparator = "\n\n"

// errEmptyAnswer marks a backend reply with no usable text.
var errEmptyAnswer = errors.New("empty answer")

// GeneratorBackend pairs a backend with its call timeout.
type GeneratorBackend struct {
	Backend driven.GenerationBackend

	// Timeout bounds one Try call. Zero uses DefaultBackendTimeout.
	Timeout time.Duration
}

// Generator asks generation backends in priority order and returns the first
// non-empty answer. It never synthesises text of its own.
type Generator struct {
	backends []GeneratorBackend
}

// NewGenerator creates a generator over backends in priority order.
func NewGenerator(backends ...GeneratorBackend) *Generator {
	out := make([]GeneratorBackend, 0, len(backends))
	for _, b := range backends {
		if b.Backend == nil {
			continue
		}
		if b.Timeout <= 0 {
			b.Timeout = DefaultBackendTimeout
		}
		out = append(out, b)
	}
	return &Generator{backends: out}
}

// Generate implements driving.AnswerGenerator.
func (g *Generator) Generate(ctx context.Context, chunks []domain.RankedChunk, question string) (*domain.Answer, error) {
	docContext := buildContext(chunks)
	var attempts []domain.BackendAttempt

	for _, b := range g.backends {
		if !b.Backend.Configured() {
			logger.Debug("generator: skipping unconfigured backend %s", b.Backend.Name())
			continue
		}
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, domain.BackendAttempt{Backend: b.Backend.Name(), Err: err})
			break
		}

		text, err := g.try(ctx, b, docContext, question)
		if err != nil {
			logger.With(zap.String("backend", b.Backend.Name()), zap.Error(err)).
				Warn("generation backend failed")
			attempts = append(attempts, domain.BackendAttempt{Backend: b.Backend.Name(), Err: err})
			continue
		}

		return &domain.Answer{
			Text:                   text,
			Backend:                b.Backend.Name(),
			SupportingChunkIndices: domain.ChunkIndices(chunks),
			ChunksUsed:             len(chunks),
		}, nil
	}

	return nil, &domain.AllBackendsFailedError{Attempts: attempts}
}

func (g *Generator) try(ctx context.Context, b GeneratorBackend, docContext, question string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	text, err := b.Backend.Try(callCtx, docContext, question)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyAnswer
	}
	return text, nil
}

// Health implements driving.AnswerGenerator.
func (g *Generator) Health() []domain.BackendStatus {
	statuses := make([]domain.BackendStatus, len(g.backends))
	for i, b := range g.backends {
		statuses[i] = domain.BackendStatus{
			Name:       b.Backend.Name(),
			Model:      b.Backend.Model(),
			Configured: b.Backend.Configured(),
		}
	}
	return statuses
}

func buildContext(chunks []domain.RankedChunk) string {
	texts := make([]string, len(chunks))
	for i, rc := range chunks {
		texts[i] = rc.Chunk.Text
	}
	return strings.Join(texts, contextSeparator)
}
