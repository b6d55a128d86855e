// Package chunker provides a fixed-size text chunker with overlap.
package chunker

import (
	"iter"
	"slices"
	"strings"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of bytes per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping bytes.
const DefaultChunkOverlap = 200

// Processor splits document text into fixed-size chunks.
// It holds no state and is safe for concurrent use.
type Processor struct{}

// New creates a new chunker.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Chunk splits text into chunks of size bytes, each starting size-overlap
// bytes after the previous one. The last chunk ends at len(text).
func (p *Processor) Chunk(text string, size, overlap int) ([]domain.Chunk, error) {
	seq, err := p.Seq(text, size, overlap)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}
	chunks := make([]domain.Chunk, 0, len(text)/(size-overlap)+1)
	return slices.AppendSeq(chunks, seq), nil
}

// Seq returns the chunk sequence lazily. Iterating it again yields the same chunks.
func (p *Processor) Seq(text string, size, overlap int) (iter.Seq[domain.Chunk], error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}

	return func(yield func(domain.Chunk) bool) {
		step := size - overlap
		for index, start := 0, 0; start < len(text); index, start = index+1, start+step {
			end := min(start+size, len(text))
			chunk := domain.Chunk{
				Index:       index,
				StartOffset: start,
				EndOffset:   end,
				// Byte offsets can split a multi-byte rune at either edge.
				Text: strings.ToValidUTF8(text[start:end], "�"),
			}
			if !yield(chunk) {
				return
			}
		}
	}, nil
}

func validate(size, overlap int) error {
	switch {
	case size <= 0:
		return &domain.ConfigError{Field: "chunk_size", Reason: "must be positive"}
	case overlap < 0:
		return &domain.ConfigError{Field: "chunk_overlap", Reason: "must not be negative"}
	case overlap >= size:
		return &domain.ConfigError{Field: "chunk_overlap", Reason: "must be smaller than chunk_size"}
	}
	return nil
}
