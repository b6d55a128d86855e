package openai

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

	assert.Equal(t, "openai", b.Name())
	assert.Equal(t, "gpt-3.5-turbo", b.Model())
	assert.False(t, b.Configured())
}

func TestTry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model       string  `json:"model"`
			MaxTokens   int     `json:"max_tokens"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-3.5-turbo", req.Model)
		assert.Equal(t, 500, req.MaxTokens)
		assert.InDelta(t, 0.7, req.Temperature, 1e-6)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, llm.DefaultSystemPrompt, req.Messages[0].Content)
		assert.Equal(t, "Context:\nctx\n\nQuestion: q\n\nAnswer:", req.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" 42 "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	b := New(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1/"})
	answer, err := b.Try(context.Background(), "ctx", "q")

	require.NoError(t, err)
	assert.Equal(t, "42", answer)
}

func TestTry_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := New(Config{APIKey: "k", BaseURL: server.URL}).Try(context.Background(), "c", "q")
	assert.Error(t, err)
}

func TestTry_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	_, err := New(Config{APIKey: "k", BaseURL: server.URL}).Try(context.Background(), "c", "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
}
