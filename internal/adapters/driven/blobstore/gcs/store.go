// Package gcs serves encrypted documents mirrored to a Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
	"github.com/anynomousfriend/Fathom-0x/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// DefaultTimeout bounds a single object read.
const DefaultTimeout = 30 * time.Second

// Config holds configuration for the bucket mirror.
type Config struct {
	Bucket  string
	Prefix  string
	Timeout time.Duration

	// Options are passed to storage.NewClient.
	Options []option.ClientOption
}

// Store reads blobs stored as objects named {prefix}/{blobID}.
type Store struct {
	client  *storage.Client
	prefix  string
	timeout time.Duration

	open   func(ctx context.Context, name string) (io.ReadCloser, error)
	create func(ctx context.Context, name string) io.WriteCloser
}

// NewStore creates a Cloud Storage client for cfg.Bucket.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, &domain.ConfigError{Field: "gcs.bucket", Reason: "required"}
	}
	client, err := storage.NewClient(ctx, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}

	bucket := client.Bucket(cfg.Bucket)
	s := newStore(cfg,
		func(ctx context.Context, name string) (io.ReadCloser, error) {
			return bucket.Object(name).NewReader(ctx)
		},
		func(ctx context.Context, name string) io.WriteCloser {
			return bucket.Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
		},
	)
	s.client = client
	return s, nil
}

func newStore(
	cfg Config,
	open func(ctx context.Context, name string) (io.ReadCloser, error),
	create func(ctx context.Context, name string) io.WriteCloser,
) *Store {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{prefix: cfg.Prefix, timeout: cfg.Timeout, open: open, create: create}
}

// Name identifies the store.
func (s *Store) Name() string {
	return "gcs"
}

// Close releases the storage client.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) objectName(blobID string) string {
	if s.prefix == "" {
		return blobID
	}
	return path.Join(s.prefix, blobID)
}

// Fetch reads the mirrored object for blobID.
func (s *Store) Fetch(ctx context.Context, blobID string) (*domain.EncryptedBlob, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	r, err := s.open(ctx, s.objectName(blobID))
	if err != nil {
		return nil, &domain.FetchError{Kind: classify(err), BlobID: blobID, Err: err}
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &domain.FetchError{Kind: classify(err), BlobID: blobID, Err: fmt.Errorf("read object: %w", err)}
	}
	return &domain.EncryptedBlob{BlobID: blobID, Data: data}, nil
}

// Put mirrors ciphertext under blobID. Existing objects are left untouched.
func (s *Store) Put(ctx context.Context, blobID string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	name := s.objectName(blobID)
	w := s.create(ctx, name)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			logger.Debug("gcs: object %s already mirrored", name)
			return nil
		}
		return fmt.Errorf("finalize object %s: %w", name, err)
	}
	return nil
}

func classify(err error) domain.FetchErrorKind {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return domain.FetchNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FetchTimeout
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return domain.FetchNotFound
	}
	return domain.FetchTransport
}
