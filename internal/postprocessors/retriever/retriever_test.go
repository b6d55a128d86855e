package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

func chunksOf(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		out[i] = domain.Chunk{Index: i, StartOffset: i * 10, EndOffset: i*10 + len(text), Text: text}
	}
	return out
}

type constScorer float64

func (constScorer) Name() string { return "const" }
func (c constScorer) Score(_, _ string) float64 { return float64(c) }

func TestRank_SingleChunkRevenue(t *testing.T) {
	chunks := chunksOf("Revenue: $10.5M for the quarter. Operating costs were flat.")

	ranked := New(nil).Rank(chunks, "revenue", 3)

	require.Len(t, ranked, 1)
	assert.Equal(t, 0, ranked[0].Chunk.Index)
	assert.GreaterOrEqual(t, ranked[0].Score, 1.0)
}

func TestRank_OrdersByScoreThenIndex(t *testing.T) {
	chunks := chunksOf(
		"nothing relevant here",
		"the budget for marketing",
		"budget and marketing and sales figures",
		"marketing budget",
		"sales",
	)

	ranked := New(nil).Rank(chunks, "What is the marketing budget?", 5)

	require.Len(t, ranked, 5)
	assert.Equal(t, []int{1, 2, 3, 0, 4}, domain.ChunkIndices(ranked))
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
		if ranked[i-1].Score == ranked[i].Score {
			assert.Less(t, ranked[i-1].Chunk.Index, ranked[i].Chunk.Index)
		}
	}
}

func TestRank_TiesKeepIndexOrderForAnyScorer(t *testing.T) {
	chunks := chunksOf("a", "b", "c", "d")
	shuffled := []domain.Chunk{chunks[2], chunks[0], chunks[3], chunks[1]}

	ranked := New(constScorer(1)).Rank(shuffled, "q", 4)
	assert.Equal(t, []int{0, 1, 2, 3}, domain.ChunkIndices(ranked))
}

func TestRank_TopKBounds(t *testing.T) {
	chunks := chunksOf("alpha", "beta", "gamma", "delta")
	r := New(nil)

	assert.Len(t, r.Rank(chunks, "alpha", 2), 2)
	assert.Len(t, r.Rank(chunks, "alpha", 10), 4)
	assert.Empty(t, r.Rank(chunks, "alpha", 0))
	assert.Empty(t, r.Rank(chunks, "alpha", -1))
	assert.Empty(t, r.Rank(nil, "alpha", 3))
}

func TestRank_NegativeScoresClampToZero(t *testing.T) {
	ranked := New(constScorer(-2)).Rank(chunksOf("x"), "q", 1)
	require.Len(t, ranked, 1)
	assert.Zero(t, ranked[0].Score)
}

func TestRank_Deterministic(t *testing.T) {
	chunks := chunksOf("one two", "two three", "three four", "four one")
	r := New(nil)

	first := r.Rank(chunks, "one three", 3)
	second := r.Rank(chunks, "one three", 3)
	assert.Equal(t, first, second)
}

func TestTokenOverlap_Score(t *testing.T) {
	s := TokenOverlap{}

	assert.Equal(t, "token_overlap", s.Name())
	assert.Equal(t, 2.0, s.Score("Marketing BUDGET", "the budget, for marketing; budget"))
	assert.Equal(t, 0.0, s.Score("", "anything"))
	assert.Equal(t, 0.0, s.Score("?!", "anything"))
}

func TestJaccard_Score(t *testing.T) {
	s := Jaccard{}

	assert.Equal(t, "jaccard", s.Name())
	assert.InDelta(t, 1.0, s.Score("a b", "b a"), 1e-9)
	assert.InDelta(t, 1.0/3.0, s.Score("a b", "b c"), 1e-9)
	assert.Zero(t, s.Score("a", ""))
}

func TestNew_DefaultScorer(t *testing.T) {
	assert.Equal(t, "token_overlap", New(nil).ScorerName())
	assert.Equal(t, "jaccard", New(Jaccard{}).ScorerName())
}
