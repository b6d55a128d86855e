// Package firestore provides a Cloud Firestore QueryLedgerTracker for
// deployments where several oracle nodes consume the same query stream.
//
// Records are created with Create, which fails with AlreadyExists for a
// second writer. Reserve takes a lease document with an expiry so a crashed
// node cannot block a query forever; a live holder keeps extending it.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/storage"
	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Ensure Tracker implements the interfaces.
var (
	_ driven.QueryLedgerTracker = (*Tracker)(nil)
	_ driven.CursorStore        = (*Tracker)(nil)
)

// Default configuration values.
const (
	DefaultCollection   = "processed_queries"
	DefaultLeaseTTL     = 2 * time.Minute
	DefaultPollInterval = 250 * time.Millisecond

	releaseTimeout = 10 * time.Second
)

var errLeaseHeld = errors.New("lease held by another node")

// Config holds configuration for the Firestore tracker.
type Config struct {
	// ProjectID is the GCP project (required).
	ProjectID string

	// Collection holds processed query records (default: processed_queries).
	// Leases and cursors use "<collection>_locks" and "<collection>_cursors".
	Collection string

	// LeaseTTL bounds how long a crashed holder blocks a query (default: 2m).
	// A live holder renews the lease every LeaseTTL/3.
	LeaseTTL time.Duration

	// PollInterval is the wait between lease attempts (default: 250ms).
	PollInterval time.Duration
}

// Tracker implements driven.QueryLedgerTracker on Firestore.
type Tracker struct {
	client       *firestore.Client
	records      *firestore.CollectionRef
	leases       *firestore.CollectionRef
	cursors      *firestore.CollectionRef
	owner        string
	leaseTTL     time.Duration
	pollInterval time.Duration
	local        storage.KeyedLock
}

type recordDoc struct {
	QueryID           string    `firestore:"query_id"`
	TransactionDigest string    `firestore:"transaction_digest"`
	SubmittedAt       time.Time `firestore:"submitted_at"`
}

type leaseDoc struct {
	Owner     string    `firestore:"owner"`
	ExpiresAt time.Time `firestore:"expires_at"`
}

type cursorDoc struct {
	Cursor    string    `firestore:"cursor"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// NewTracker connects to Firestore.
func NewTracker(ctx context.Context, cfg Config) (*Tracker, error) {
	if cfg.ProjectID == "" {
		return nil, &domain.ConfigError{Field: "tracker.firestore_project", Reason: "required"}
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return newTracker(client, cfg), nil
}

func newTracker(client *firestore.Client, cfg Config) *Tracker {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultLeaseTTL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return &Tracker{
		client:       client,
		records:      client.Collection(cfg.Collection),
		leases:       client.Collection(cfg.Collection + "_locks"),
		cursors:      client.Collection(cfg.Collection + "_cursors"),
		owner:        uuid.NewString(),
		leaseTTL:     cfg.LeaseTTL,
		pollInterval: cfg.PollInterval,
	}
}

// Close closes the Firestore client.
func (t *Tracker) Close() error {
	return t.client.Close()
}

// Reserve takes the local lock, then the shared lease for queryID.
func (t *Tracker) Reserve(ctx context.Context, queryID string) (func(), error) {
	releaseLocal, err := t.local.Acquire(ctx, queryID)
	if err != nil {
		return nil, err
	}

	ref := t.leases.Doc(docID(queryID))
	for {
		err = t.tryLease(ctx, ref)
		if err == nil {
			break
		}
		if !errors.Is(err, errLeaseHeld) {
			releaseLocal()
			return nil, fmt.Errorf("acquiring lease for %s: %w", queryID, err)
		}
		select {
		case <-ctx.Done():
			releaseLocal()
			return nil, ctx.Err()
		case <-time.After(t.pollInterval):
		}
	}

	stopRenew := storage.KeepAlive(storage.RenewInterval(t.leaseTTL), queryID, func(ctx context.Context) (bool, error) {
		return t.renewLease(ctx, ref)
	})

	return func() {
		stopRenew()
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		// An unreleased lease expires after leaseTTL.
		_ = t.dropLease(ctx, ref)
		releaseLocal()
	}, nil
}

// renewLease pushes the expiry forward if this node still owns the lease.
func (t *Tracker) renewLease(ctx context.Context, ref *firestore.DocumentRef) (bool, error) {
	held := false
	err := t.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		held = false
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}
		var lease leaseDoc
		if err := snap.DataTo(&lease); err != nil {
			return err
		}
		if lease.Owner != t.owner {
			return nil
		}
		held = true
		return tx.Set(ref, leaseDoc{Owner: t.owner, ExpiresAt: time.Now().Add(t.leaseTTL)})
	})
	return held, err
}

func (t *Tracker) tryLease(ctx context.Context, ref *firestore.DocumentRef) error {
	return t.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var held leaseDoc
			if err := snap.DataTo(&held); err != nil {
				return err
			}
			if held.Owner != t.owner && time.Now().Before(held.ExpiresAt) {
				return errLeaseHeld
			}
		case status.Code(err) != codes.NotFound:
			return err
		}
		return tx.Set(ref, leaseDoc{Owner: t.owner, ExpiresAt: time.Now().Add(t.leaseTTL)})
	})
}

func (t *Tracker) dropLease(ctx context.Context, ref *firestore.DocumentRef) error {
	return t.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}
		var held leaseDoc
		if err := snap.DataTo(&held); err != nil {
			return err
		}
		if held.Owner != t.owner {
			return nil
		}
		return tx.Delete(ref)
	})
}

// HasProcessed reports whether a record document exists.
func (t *Tracker) HasProcessed(ctx context.Context, queryID string) (bool, error) {
	_, err := t.records.Doc(docID(queryID)).Get(ctx)
	if err == nil {
		return true, nil
	}
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	return false, fmt.Errorf("checking processed query: %w", err)
}

// Record creates the record document.
func (t *Tracker) Record(ctx context.Context, rec domain.ProcessedQueryRecord) error {
	if rec.QueryID == "" {
		return domain.ErrInvalidInput
	}

	_, err := t.records.Doc(docID(rec.QueryID)).Create(ctx, recordDoc{
		QueryID:           rec.QueryID,
		TransactionDigest: rec.TransactionDigest,
		SubmittedAt:       rec.SubmittedAt.UTC(),
	})
	if status.Code(err) == codes.AlreadyExists {
		return &domain.DuplicateError{QueryID: rec.QueryID}
	}
	if err != nil {
		return fmt.Errorf("recording processed query: %w", err)
	}
	return nil
}

// Get returns the record for queryID.
func (t *Tracker) Get(ctx context.Context, queryID string) (*domain.ProcessedQueryRecord, error) {
	snap, err := t.records.Doc(docID(queryID)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting processed query: %w", err)
	}

	var doc recordDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decoding processed query: %w", err)
	}
	return &domain.ProcessedQueryRecord{
		QueryID:           doc.QueryID,
		TransactionDigest: doc.TransactionDigest,
		SubmittedAt:       doc.SubmittedAt,
	}, nil
}

// LoadCursor returns the saved cursor for name, or "".
func (t *Tracker) LoadCursor(ctx context.Context, name string) (string, error) {
	snap, err := t.cursors.Doc(docID(name)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading cursor: %w", err)
	}
	var doc cursorDoc
	if err := snap.DataTo(&doc); err != nil {
		return "", fmt.Errorf("decoding cursor: %w", err)
	}
	return doc.Cursor, nil
}

// SaveCursor overwrites the cursor for name.
func (t *Tracker) SaveCursor(ctx context.Context, name, cursor string) error {
	_, err := t.cursors.Doc(docID(name)).Set(ctx, cursorDoc{Cursor: cursor, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}

// docID maps an arbitrary id to a valid document id.
func docID(id string) string {
	return url.PathEscape(id)
}
