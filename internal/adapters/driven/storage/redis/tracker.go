// Package redis provides a Redis QueryLedgerTracker.
//
// Reserve is a SET NX lock key with a TTL, renewed while held and released
// only by its owner.
// Records are SET NX without expiry, so the first writer wins.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

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
	DefaultPrefix       = "fathom"
	DefaultLockTTL      = 2 * time.Minute
	DefaultPollInterval = 100 * time.Millisecond

	releaseTimeout = 5 * time.Second
)

// unlockScript deletes the lock only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lock only if it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Config holds configuration for the Redis tracker.
type Config struct {
	// Addr is host:port (required).
	Addr string

	// Password is the AUTH password. Never logged.
	Password string

	// DB selects the logical database.
	DB int

	// Prefix namespaces all keys (default: fathom).
	Prefix string

	// LockTTL bounds how long a crashed holder blocks a query (default: 2m).
	// A live holder renews the lock every LockTTL/3.
	LockTTL time.Duration

	// PollInterval is the wait between lock attempts (default: 100ms).
	PollInterval time.Duration
}

// Tracker implements driven.QueryLedgerTracker on Redis.
type Tracker struct {
	client       *redis.Client
	prefix       string
	lockTTL      time.Duration
	pollInterval time.Duration
}

type recordValue struct {
	QueryID           string    `json:"query_id"`
	TransactionDigest string    `json:"transaction_digest"`
	SubmittedAt       time.Time `json:"submitted_at"`
}

// NewTracker connects to Redis and pings it.
func NewTracker(ctx context.Context, cfg Config) (*Tracker, error) {
	if cfg.Addr == "" {
		return nil, &domain.ConfigError{Field: "tracker.redis_addr", Reason: "required"}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return newTracker(client, cfg), nil
}

func newTracker(client *redis.Client, cfg Config) *Tracker {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Tracker{
		client:       client,
		prefix:       cfg.Prefix,
		lockTTL:      cfg.LockTTL,
		pollInterval: cfg.PollInterval,
	}
}

// Close closes the client.
func (t *Tracker) Close() error {
	return t.client.Close()
}

// Reserve polls SET NX on the lock key until it succeeds or ctx is done.
func (t *Tracker) Reserve(ctx context.Context, queryID string) (func(), error) {
	key := t.key("lock", queryID)
	token := uuid.NewString()

	for {
		ok, err := t.client.SetNX(ctx, key, token, t.lockTTL).Result()
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

	stopRenew := storage.KeepAlive(storage.RenewInterval(t.lockTTL), key, func(ctx context.Context) (bool, error) {
		n, err := renewScript.Run(ctx, t.client, []string{key}, token, t.lockTTL.Milliseconds()).Int()
		return n == 1, err
	})

	return func() {
		stopRenew()
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		// Expiry covers a failed unlock.
		_ = unlockScript.Run(ctx, t.client, []string{key}, token).Err()
	}, nil
}

// HasProcessed reports whether the record key exists.
func (t *Tracker) HasProcessed(ctx context.Context, queryID string) (bool, error) {
	n, err := t.client.Exists(ctx, t.key("processed", queryID)).Result()
	if err != nil {
		return false, fmt.Errorf("checking processed query: %w", err)
	}
	return n > 0, nil
}

// Record writes the record key if absent.
func (t *Tracker) Record(ctx context.Context, rec domain.ProcessedQueryRecord) error {
	if rec.QueryID == "" {
		return domain.ErrInvalidInput
	}

	data, err := json.Marshal(recordValue{
		QueryID:           rec.QueryID,
		TransactionDigest: rec.TransactionDigest,
		SubmittedAt:       rec.SubmittedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshalling record: %w", err)
	}

	ok, err := t.client.SetNX(ctx, t.key("processed", rec.QueryID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("recording processed query: %w", err)
	}
	if !ok {
		return &domain.DuplicateError{QueryID: rec.QueryID}
	}
	return nil
}

// Get returns the record for queryID.
func (t *Tracker) Get(ctx context.Context, queryID string) (*domain.ProcessedQueryRecord, error) {
	data, err := t.client.Get(ctx, t.key("processed", queryID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting processed query: %w", err)
	}

	var v recordValue
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding processed query: %w", err)
	}
	return &domain.ProcessedQueryRecord{
		QueryID:           v.QueryID,
		TransactionDigest: v.TransactionDigest,
		SubmittedAt:       v.SubmittedAt,
	}, nil
}

// LoadCursor returns the saved cursor for name, or "".
func (t *Tracker) LoadCursor(ctx context.Context, name string) (string, error) {
	cursor, err := t.client.Get(ctx, t.key("cursor", name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading cursor: %w", err)
	}
	return cursor, nil
}

// SaveCursor overwrites the cursor for name.
func (t *Tracker) SaveCursor(ctx context.Context, name, cursor string) error {
	if err := t.client.Set(ctx, t.key("cursor", name), cursor, 0).Err(); err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}

func (t *Tracker) key(kind, id string) string {
	return t.prefix + ":" + kind + ":" + id
}
