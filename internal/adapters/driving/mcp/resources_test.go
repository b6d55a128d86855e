package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

func TestExtractQueryID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid query URI",
			uri:      "fathom://queries/0xabc",
			expected: "0xabc",
		},
		{
			name:     "invalid prefix",
			uri:      "file://queries/0xabc",
			expected: "",
		},
		{
			name:     "nested path",
			uri:      "fathom://queries/0xabc/extra",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractQueryID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleHealthResource(t *testing.T) {
	health := &mockHealthService{report: &domain.HealthReport{
		Status:    domain.HealthDegraded,
		BlobStore: "walrus",
		Backends:  []domain.BackendStatus{{Name: "gemini"}},
		Problems:  []string{domain.ErrNoBackends.Error()},
	}}
	server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Health: health})
	require.NoError(t, err)

	result, err := server.handleHealthResource(context.Background(), makeReadResourceRequest("fathom://health"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var report domain.HealthReport
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &report))
	assert.Equal(t, domain.HealthDegraded, report.Status)
	assert.Equal(t, "walrus", report.BlobStore)
}

func TestServer_handleQueryResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns record", func(t *testing.T) {
		records := &mockRecordService{record: &domain.ProcessedQueryRecord{
			QueryID:           "0xabc",
			TransactionDigest: "Dig",
			SubmittedAt:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		}}
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Health: &mockHealthService{}, Records: records})
		require.NoError(t, err)

		result, err := server.handleQueryResource(ctx, makeReadResourceRequest("fathom://queries/0xabc"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, `"transaction_digest": "Dig"`)
	})

	t.Run("unknown query is not found", func(t *testing.T) {
		records := &mockRecordService{err: domain.ErrNotFound}
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Health: &mockHealthService{}, Records: records})
		require.NoError(t, err)

		_, err = server.handleQueryResource(ctx, makeReadResourceRequest("fathom://queries/0xabc"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("tracker error is wrapped", func(t *testing.T) {
		records := &mockRecordService{err: errors.New("db down")}
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Health: &mockHealthService{}, Records: records})
		require.NoError(t, err)

		_, err = server.handleQueryResource(ctx, makeReadResourceRequest("fathom://queries/0xabc"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})

	t.Run("without records port", func(t *testing.T) {
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Health: &mockHealthService{}})
		require.NoError(t, err)

		_, err = server.handleQueryResource(ctx, makeReadResourceRequest("fathom://queries/0xabc"))
		assert.Error(t, err)
	})

	t.Run("invalid uri", func(t *testing.T) {
		server, err := NewServer(&Ports{Pipeline: &mockPipeline{}, Health: &mockHealthService{}, Records: &mockRecordService{}})
		require.NoError(t, err)

		_, err = server.handleQueryResource(ctx, makeReadResourceRequest("fathom://invalid"))
		assert.Error(t, err)
	})
}
