package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrDuplicate", ErrDuplicate},
		{"ErrNoBackends", ErrNoBackends},
		{"ErrKeyUnavailable", ErrKeyUnavailable},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestFetchError_UnwrapAndMessage(t *testing.T) {
	err := &FetchError{Kind: FetchTimeout, BlobID: "blob-1", Err: context.DeadlineExceeded}

	assert.Contains(t, err.Error(), "blob-1")
	assert.Contains(t, err.Error(), "timeout")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	var target *FetchError
	wrapped := fmt.Errorf("fetching: %w", err)
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, FetchTimeout, target.Kind)
}

func TestDecryptionError_Message(t *testing.T) {
	err := &DecryptionError{Kind: DecryptBadPadding, Reason: "pad byte 0"}
	assert.Equal(t, "decrypt: bad_padding: pad byte 0", err.Error())

	bare := &DecryptionError{Kind: DecryptMalformed}
	assert.Equal(t, "decrypt: malformed", bare.Error())
}

func TestAllBackendsFailedError(t *testing.T) {
	t.Run("no attempts matches ErrNoBackends", func(t *testing.T) {
		err := &AllBackendsFailedError{}
		assert.True(t, errors.Is(err, ErrNoBackends))
		assert.Contains(t, err.Error(), "no generation backend")
	})

	t.Run("attempts are listed in order", func(t *testing.T) {
		err := &AllBackendsFailedError{Attempts: []BackendAttempt{
			{Backend: "gemini", Err: errors.New("status 500")},
			{Backend: "openai", Err: errors.New("empty answer")},
		}}
		assert.False(t, errors.Is(err, ErrNoBackends))
		assert.Equal(t, "all generation backends failed: gemini: status 500; openai: empty answer", err.Error())
	})
}

func TestDuplicateError_IsErrDuplicate(t *testing.T) {
	err := fmt.Errorf("record: %w", &DuplicateError{QueryID: "q1"})
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Contains(t, err.Error(), "q1")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"fetch timeout", &FetchError{Kind: FetchTimeout}, true},
		{"fetch transport", &FetchError{Kind: FetchTransport}, true},
		{"fetch not found", &FetchError{Kind: FetchNotFound}, false},
		{"submit timeout", &SubmissionError{Kind: SubmitTimeout}, true},
		{"submit transport", &SubmissionError{Kind: SubmitTransport}, true},
		{"submit rejected", &SubmissionError{Kind: SubmitRejected}, false},
		{"wrapped fetch transport", fmt.Errorf("x: %w", &FetchError{Kind: FetchTransport}), true},
		{"decryption", &DecryptionError{Kind: DecryptBadKey}, false},
		{"all backends failed", &AllBackendsFailedError{}, false},
		{"config", &ConfigError{Field: "chunk_size"}, false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}
