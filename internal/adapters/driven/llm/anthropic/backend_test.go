package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/llm"
	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

func TestNew_Defaults(t *testing.T) {
	b := New(Config{})

	assert.Equal(t, "anthropic", b.Name())
	assert.Equal(t, DefaultModel, b.Model())
	assert.False(t, b.Configured())
	assert.True(t, New(Config{APIKey: "k"}).Configured())
}

func TestTry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, llm.DefaultSystemPrompt, req.System)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "Context:\nRevenue: $5M\n\nQuestion: What is revenue?\n\nAnswer:", req.Messages[0].Content)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":" Revenue "},{"type":"text","text":"is $5M. "}]}`))
	}))
	defer server.Close()

	b := New(Config{APIKey: "test-key", BaseURL: server.URL})
	answer, err := b.Try(context.Background(), "Revenue: $5M", "What is revenue?")

	require.NoError(t, err)
	assert.Equal(t, "Revenue is $5M.", answer)
}

func TestTry_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad model"}}`))
	}))
	defer server.Close()

	_, err := New(Config{APIKey: "k", BaseURL: server.URL}).Try(context.Background(), "c", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
}

func TestTry_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := New(Config{APIKey: "k", BaseURL: server.URL}).Try(context.Background(), "c", "q")
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
}
