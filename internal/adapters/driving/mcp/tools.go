package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

// AnswerQueryInput is the input schema for the answer_query tool.
type AnswerQueryInput struct {
	QueryID        string `json:"query_id" jsonschema:"on-ledger query object id"`
	DocumentBlobID string `json:"document_blob_id" jsonschema:"blob id of the encrypted document"`
	Question       string `json:"question" jsonschema:"question to answer from the document"`
	Key            string `json:"key" jsonschema:"hex AES-256 document key"`
	IV             string `json:"iv" jsonschema:"hex AES-CBC initialisation vector"`
}

// AnswerQueryOutput is the output schema for the answer_query tool.
type AnswerQueryOutput struct {
	QueryID           string `json:"query_id"`
	State             string `json:"state"`
	FailedAt          string `json:"failed_at,omitempty"`
	Failure           string `json:"failure,omitempty"`
	TransactionDigest string `json:"transaction_digest,omitempty"`
	Answer            string `json:"answer,omitempty"`
	Backend           string `json:"backend_used,omitempty"`
	ChunksUsed        int    `json:"chunks_used,omitempty"`
	AttestationHash   string `json:"attestation_hash,omitempty"`
	Error             string `json:"error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer_query",
		Description: "Answer a question about an encrypted document and submit the attested answer on chain",
	}, s.handleAnswerQuery)
}

// handleAnswerQuery handles the answer_query tool invocation. Pipeline
// failures are reported in the output; only malformed input is an error.
func (s *Server) handleAnswerQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerQueryInput,
) (*mcp.CallToolResult, AnswerQueryOutput, error) {
	key, err := domain.DecodeKeyHex("key", input.Key)
	if err != nil {
		return nil, AnswerQueryOutput{}, err
	}
	iv, err := domain.DecodeKeyHex("iv", input.IV)
	if err != nil {
		clear(key)
		return nil, AnswerQueryOutput{}, err
	}

	result := s.ports.Pipeline.Process(ctx, domain.QueryRequest{
		QueryID:        input.QueryID,
		DocumentBlobID: input.DocumentBlobID,
		Question:       input.Question,
		DecryptionKey:  key,
		IV:             iv,
	})

	output := AnswerQueryOutput{
		QueryID:           result.QueryID,
		State:             result.State.String(),
		FailedAt:          result.FailedAt.String(),
		Failure:           string(result.Failure),
		TransactionDigest: result.TransactionDigest,
	}
	if result.Answer != nil {
		output.Answer = result.Answer.Text
		output.Backend = result.Answer.Backend
		output.ChunksUsed = result.Answer.ChunksUsed
	}
	if result.Attestation != nil {
		output.AttestationHash = result.Attestation.HashHex()
	}
	if result.Err != nil {
		output.Error = result.Err.Error()
	}

	return nil, output, nil
}
