// Package retriever ranks document chunks against a question.
package retriever

import (
	"cmp"
	"slices"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Ensure Retriever implements the interface.
var _ driven.Retriever = (*Retriever)(nil)

// DefaultTopK is the default number of chunks selected.
const DefaultTopK = 3

// Scorer assigns a non-negative relevance score to a chunk.
// Scorers need not order anything; Rank enforces the ordering.
type Scorer interface {
	Name() string
	Score(question, chunk string) float64
}

// Retriever selects the top chunks using a Scorer.
type Retriever struct {
	scorer Scorer
}

// New creates a retriever. A nil scorer uses token overlap.
func New(scorer Scorer) *Retriever {
	if scorer == nil {
		scorer = TokenOverlap{}
	}
	return &Retriever{scorer: scorer}
}

// ScorerName returns the active scorer name.
func (r *Retriever) ScorerName() string {
	return r.scorer.Name()
}

// Rank scores every chunk and returns at most topK, by score descending and
// then by ascending chunk index.
func (r *Retriever) Rank(chunks []domain.Chunk, question string, topK int) []domain.RankedChunk {
	if topK <= 0 || len(chunks) == 0 {
		return []domain.RankedChunk{}
	}

	ranked := make([]domain.RankedChunk, len(chunks))
	for i, c := range chunks {
		score := r.scorer.Score(question, c.Text)
		if score < 0 {
			score = 0
		}
		ranked[i] = domain.RankedChunk{Chunk: c, Score: score}
	}

	slices.SortStableFunc(ranked, func(a, b domain.RankedChunk) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.Index, b.Chunk.Index)
	})

	return ranked[:min(topK, len(ranked))]
}
