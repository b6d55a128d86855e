// Package walrus fetches encrypted documents from a Walrus aggregator.
package walrus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultAggregatorURL = "https://aggregator.walrus-testnet.walrus.space"
	DefaultTimeout       = 30 * time.Second

	// DefaultMaxBlobSize caps how much of a response body is read.
	DefaultMaxBlobSize = 64 << 20
)

// Config holds configuration for the aggregator client.
type Config struct {
	// AggregatorURL is the aggregator base URL.
	AggregatorURL string

	// Timeout bounds a single read (default: 30s).
	Timeout time.Duration

	// MaxBlobSize is the largest accepted blob in bytes (default: 64 MiB).
	MaxBlobSize int64

	// HTTPClient overrides the default client. Its own timeout is ignored.
	HTTPClient *http.Client
}

// Store reads blobs over the aggregator HTTP API.
type Store struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	maxSize int64
}

// NewStore creates a new aggregator client.
func NewStore(cfg Config) (*Store, error) {
	if cfg.AggregatorURL == "" {
		cfg.AggregatorURL = DefaultAggregatorURL
	}
	if _, err := url.Parse(cfg.AggregatorURL); err != nil {
		return nil, fmt.Errorf("walrus: invalid aggregator url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBlobSize <= 0 {
		cfg.MaxBlobSize = DefaultMaxBlobSize
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Store{
		client:  client,
		baseURL: strings.TrimRight(cfg.AggregatorURL, "/"),
		timeout: cfg.Timeout,
		maxSize: cfg.MaxBlobSize,
	}, nil
}

// Name identifies the store.
func (s *Store) Name() string {
	return "walrus"
}

// Fetch reads GET {aggregator}/v1/{blobID}.
func (s *Store) Fetch(ctx context.Context, blobID string) (*domain.EncryptedBlob, error) {
	if strings.TrimSpace(blobID) == "" {
		return nil, &domain.FetchError{Kind: domain.FetchNotFound, BlobID: blobID, Err: domain.ErrInvalidInput}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	endpoint := s.baseURL + "/v1/" + url.PathEscape(blobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchTransport, BlobID: blobID, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Kind: classify(err), BlobID: blobID, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &domain.FetchError{Kind: domain.FetchNotFound, BlobID: blobID}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &domain.FetchError{
			Kind:   domain.FetchTransport,
			BlobID: blobID,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSize+1))
	if err != nil {
		return nil, &domain.FetchError{Kind: classify(err), BlobID: blobID, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > s.maxSize {
		return nil, &domain.FetchError{
			Kind:   domain.FetchTransport,
			BlobID: blobID,
			Err:    fmt.Errorf("blob exceeds %d bytes", s.maxSize),
		}
	}

	return &domain.EncryptedBlob{BlobID: blobID, Data: data}, nil
}

// classify maps a client error to a fetch failure kind.
func classify(err error) domain.FetchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FetchTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FetchTimeout
	}
	return domain.FetchTransport
}
