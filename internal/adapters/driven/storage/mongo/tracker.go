// Package mongo provides a MongoDB QueryLedgerTracker.
//
// Records and locks are documents keyed by query id, so the unique _id
// index decides the first writer. Locks carry an owner token and an expiry
// that the holder pushes forward while it works; an expired lock is deleted
// before the next attempt.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

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
	DefaultDatabase     = "fathom"
	DefaultLockTTL      = 2 * time.Minute
	DefaultPollInterval = 100 * time.Millisecond

	releaseTimeout = 5 * time.Second
)

// Collection names.
const (
	processedCollection = "processed_queries"
	locksCollection     = "query_locks"
	cursorsCollection   = "cursors"
)

// Config holds configuration for the MongoDB tracker.
type Config struct {
	// URI is a mongodb:// or mongodb+srv:// connection string (required).
	// It may carry credentials and is never logged.
	URI string

	// Database holds the tracker collections (default: fathom).
	Database string

	// LockTTL bounds how long a crashed holder blocks a query (default: 2m).
	// A live holder renews the lock every LockTTL/3.
	LockTTL time.Duration

	// PollInterval is the wait between lock attempts (default: 100ms).
	PollInterval time.Duration
}

// Tracker implements driven.QueryLedgerTracker on MongoDB.
type Tracker struct {
	client       *mongo.Client
	processed    *mongo.Collection
	locks        *mongo.Collection
	cursors      *mongo.Collection
	lockTTL      time.Duration
	pollInterval time.Duration
}

type recordDoc struct {
	QueryID           string    `bson:"_id"`
	TransactionDigest string    `bson:"transaction_digest"`
	SubmittedAt       time.Time `bson:"submitted_at"`
}

type lockDoc struct {
	QueryID   string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type cursorDoc struct {
	Name   string `bson:"_id"`
	Cursor string `bson:"cursor"`
}

// NewTracker connects to MongoDB and pings the primary.
func NewTracker(ctx context.Context, cfg Config) (*Tracker, error) {
	if cfg.URI == "" {
		return nil, &domain.ConfigError{Field: "tracker.mongo_uri", Reason: "required"}
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		// The driver error can echo the URI.
		return nil, errors.New("connecting to mongodb: invalid connection string")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	return newTracker(client, cfg), nil
}

func newTracker(client *mongo.Client, cfg Config) *Tracker {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	t := &Tracker{
		client:       client,
		lockTTL:      cfg.LockTTL,
		pollInterval: cfg.PollInterval,
	}
	if client != nil {
		db := client.Database(cfg.Database)
		t.processed = db.Collection(processedCollection)
		t.locks = db.Collection(locksCollection)
		t.cursors = db.Collection(cursorsCollection)
	}
	return t
}

// Close disconnects the client.
func (t *Tracker) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	return t.client.Disconnect(ctx)
}

// Reserve inserts the lock document, retrying until it succeeds or ctx is
// done.
func (t *Tracker) Reserve(ctx context.Context, queryID string) (func(), error) {
	owner := uuid.NewString()

	for {
		ok, err := t.tryLock(ctx, queryID, owner)
		if err != nil {
			return nil, fmt.Errorf("locking query %s: %w", queryID, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.pollInterval):
		}
	}

	stopRenew := storage.KeepAlive(storage.RenewInterval(t.lockTTL), queryID, func(ctx context.Context) (bool, error) {
		return t.renewLock(ctx, queryID, owner)
	})

	return func() {
		stopRenew()
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		// Expiry covers a failed unlock.
		_, _ = t.locks.DeleteOne(ctx, bson.D{{Key: "_id", Value: queryID}, {Key: "owner", Value: owner}})
	}, nil
}

func (t *Tracker) renewLock(ctx context.Context, queryID, owner string) (bool, error) {
	res, err := t.locks.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: queryID}, {Key: "owner", Value: owner}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "expires_at", Value: time.Now().UTC().Add(t.lockTTL)}}}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (t *Tracker) tryLock(ctx context.Context, queryID, owner string) (bool, error) {
	now := time.Now().UTC()
	_, err := t.locks.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: queryID},
		{Key: "expires_at", Value: bson.D{{Key: "$lt", Value: now}}},
	})
	if err != nil {
		return false, err
	}

	_, err = t.locks.InsertOne(ctx, lockDoc{QueryID: queryID, Owner: owner, ExpiresAt: now.Add(t.lockTTL)})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasProcessed reports whether a record document exists.
func (t *Tracker) HasProcessed(ctx context.Context, queryID string) (bool, error) {
	n, err := t.processed.CountDocuments(ctx, bson.D{{Key: "_id", Value: queryID}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("checking processed query: %w", err)
	}
	return n > 0, nil
}

// Record inserts the record document; an existing one is a duplicate.
func (t *Tracker) Record(ctx context.Context, rec domain.ProcessedQueryRecord) error {
	if rec.QueryID == "" {
		return domain.ErrInvalidInput
	}

	_, err := t.processed.InsertOne(ctx, recordDoc{
		QueryID:           rec.QueryID,
		TransactionDigest: rec.TransactionDigest,
		SubmittedAt:       rec.SubmittedAt.UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return &domain.DuplicateError{QueryID: rec.QueryID}
	}
	if err != nil {
		return fmt.Errorf("recording processed query: %w", err)
	}
	return nil
}

// Get returns the record for queryID.
func (t *Tracker) Get(ctx context.Context, queryID string) (*domain.ProcessedQueryRecord, error) {
	var doc recordDoc
	err := t.processed.FindOne(ctx, bson.D{{Key: "_id", Value: queryID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting processed query: %w", err)
	}
	return &domain.ProcessedQueryRecord{
		QueryID:           doc.QueryID,
		TransactionDigest: doc.TransactionDigest,
		SubmittedAt:       doc.SubmittedAt.UTC(),
	}, nil
}

// LoadCursor returns the saved cursor for name, or "".
func (t *Tracker) LoadCursor(ctx context.Context, name string) (string, error) {
	var doc cursorDoc
	err := t.cursors.FindOne(ctx, bson.D{{Key: "_id", Value: name}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading cursor: %w", err)
	}
	return doc.Cursor, nil
}

// SaveCursor upserts the cursor for name.
func (t *Tracker) SaveCursor(ctx context.Context, name, cursor string) error {
	_, err := t.cursors.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: name}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "cursor", Value: cursor}}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}
