package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicate indicates a query has already been recorded as processed.
	ErrDuplicate = errors.New("query already processed")

	// ErrNoBackends indicates no generation backend is configured.
	ErrNoBackends = errors.New("no generation backend configured")

	// ErrKeyUnavailable indicates no decryption key is known for a document.
	ErrKeyUnavailable = errors.New("decryption key unavailable")

	// ErrRateLimited indicates a remote API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// FetchErrorKind classifies blob store failures.
type FetchErrorKind int

// Fetch failure kinds.
const (
	// FetchNotFound means the blob does not exist. Not retryable.
	FetchNotFound FetchErrorKind = iota + 1
	// FetchTimeout means the read exceeded its deadline.
	FetchTimeout
	// FetchTransport means a network or protocol failure.
	FetchTransport
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchNotFound:
		return "not_found"
	case FetchTimeout:
		return "timeout"
	case FetchTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// FetchError is returned by BlobStore implementations.
type FetchError struct {
	Kind   FetchErrorKind
	BlobID string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch blob %s: %s: %v", e.BlobID, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch blob %s: %s", e.BlobID, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecryptionErrorKind classifies decryption failures.
type DecryptionErrorKind int

// Decryption failure kinds.
const (
	// DecryptBadKey means the key material is unusable for the cipher.
	DecryptBadKey DecryptionErrorKind = iota + 1
	// DecryptBadPadding means the trailing padding failed validation.
	DecryptBadPadding
	// DecryptMalformed means the ciphertext or IV has an invalid shape.
	DecryptMalformed
)

func (k DecryptionErrorKind) String() string {
	switch k {
	case DecryptBadKey:
		return "bad_key"
	case DecryptBadPadding:
		return "bad_padding"
	case DecryptMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// DecryptionError is returned by Decryptor implementations.
// It never carries key material.
type DecryptionError struct {
	Kind   DecryptionErrorKind
	Reason string
}

func (e *DecryptionError) Error() string {
	if e.Reason == "" {
		return "decrypt: " + e.Kind.String()
	}
	return fmt.Sprintf("decrypt: %s: %s", e.Kind, e.Reason)
}

// ConfigError reports invalid pipeline parameters, such as chunk sizes.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// BackendAttempt records the outcome of one generation backend call.
type BackendAttempt struct {
	Backend string
	Err     error
}

// AllBackendsFailedError is returned when no generation backend produced an answer.
// Attempts is empty when no backend was configured.
type AllBackendsFailedError struct {
	Attempts []BackendAttempt
}

func (e *AllBackendsFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all generation backends failed: " + ErrNoBackends.Error()
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Backend, a.Err)
	}
	return "all generation backends failed: " + strings.Join(parts, "; ")
}

// Is reports ErrNoBackends when nothing was attempted.
func (e *AllBackendsFailedError) Is(target error) bool {
	return target == ErrNoBackends && len(e.Attempts) == 0
}

// Unwrap exposes each attempt's error.
func (e *AllBackendsFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// SubmissionErrorKind classifies ledger submission failures.
type SubmissionErrorKind int

// Submission failure kinds.
const (
	// SubmitRejected means the ledger refused the transaction. Not retryable.
	SubmitRejected SubmissionErrorKind = iota + 1
	// SubmitTransport means a network or protocol failure.
	SubmitTransport
	// SubmitTimeout means the call exceeded its deadline.
	SubmitTimeout
)

func (k SubmissionErrorKind) String() string {
	switch k {
	case SubmitRejected:
		return "rejected"
	case SubmitTransport:
		return "transport"
	case SubmitTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// SubmissionError is returned by LedgerSubmitter implementations.
type SubmissionError struct {
	Kind    SubmissionErrorKind
	QueryID string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submit answer for %s: %s: %v", e.QueryID, e.Kind, e.Err)
	}
	return fmt.Sprintf("submit answer for %s: %s", e.QueryID, e.Kind)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// DuplicateError is returned when a query id is recorded twice.
type DuplicateError struct {
	QueryID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("query %s: %v", e.QueryID, ErrDuplicate)
}

// Is matches ErrDuplicate.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// IsRetryable reports whether err belongs to a transient network class.
// Only fetch and submission timeouts or transport failures qualify.
func IsRetryable(err error) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind == FetchTimeout || fetchErr.Kind == FetchTransport
	}
	var submitErr *SubmissionError
	if errors.As(err, &submitErr) {
		return submitErr.Kind == SubmitTimeout || submitErr.Kind == SubmitTransport
	}
	return false
}
