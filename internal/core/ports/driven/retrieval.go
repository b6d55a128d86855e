package driven

import "github.com/anynomousfriend/Fathom-0x/internal/core/domain"

// Chunker splits plaintext into overlapping fixed-size spans.
type Chunker interface {
	// Chunk is pure and deterministic. It returns *domain.ConfigError when
	// size <= 0, overlap < 0 or overlap >= size.
	Chunk(text string, size, overlap int) ([]domain.Chunk, error)
}

// Retriever selects the chunks most relevant to a question.
type Retriever interface {
	// Rank returns at most topK chunks ordered by score descending, ties
	// broken by ascending chunk index. It never fails.
	Rank(chunks []domain.Chunk, question string, topK int) []domain.RankedChunk
}
