package domain

// Chunk is a contiguous span of a plaintext document.
// Offsets are byte offsets; EndOffset is exclusive.
type Chunk struct {
	Index       int    `json:"index"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Text        string `json:"-"`
}

// RankedChunk is a chunk with its relevance score for a question.
type RankedChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// ChunkIndices returns the original indices of ranked chunks, in rank order.
func ChunkIndices(ranked []RankedChunk) []int {
	indices := make([]int, len(ranked))
	for i, rc := range ranked {
		indices[i] = rc.Chunk.Index
	}
	return indices
}
