package services

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driving"
	"github.com/anynomousfriend/Fathom-0x/internal/logger"
)

// Verify interface compliance.
var _ driving.QuerySource = (*LedgerSource)(nil)

const (
	// DefaultPollInterval is the delay between ledger polls.
	DefaultPollInterval = 10 * time.Second

	ledgerCursorName  = "sui_query_events"
	ledgerPendingName = "sui_query_events_pending"
	ledgerPageSize    = 50

	// maxPendingEvents bounds queries held back for missing keys. When it is
	// reached the cursor stops advancing until keys arrive.
	maxPendingEvents = 1024
)

var errPendingFull = errors.New("too many queries waiting for keys")

// LedgerSource polls the ledger for submitted queries and resolves their key
// material. Queries whose key is unknown are held and retried on later polls,
// so adding a key to the keyring while the node runs picks them up. Held
// queries are saved in the cursor store before the cursor moves past them.
type LedgerSource struct {
	events   driven.LedgerEventReader
	keys     driven.KeyResolver
	cursors  driven.CursorStore
	interval time.Duration

	mu      sync.Mutex
	pending map[string]domain.QueryEvent
	dirty   bool
}

// NewLedgerSource creates a ledger poller. interval <= 0 uses DefaultPollInterval.
func NewLedgerSource(
	events driven.LedgerEventReader,
	keys driven.KeyResolver,
	cursors driven.CursorStore,
	interval time.Duration,
) *LedgerSource {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &LedgerSource{
		events:   events,
		keys:     keys,
		cursors:  cursors,
		interval: interval,
		pending:  make(map[string]domain.QueryEvent),
	}
}

// Name implements driving.QuerySource.
func (s *LedgerSource) Name() string {
	return "ledger"
}

// Pending returns the number of queries waiting for key material.
func (s *LedgerSource) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Run implements driving.QuerySource. Poll failures are logged and retried
// on the next tick; only a cursor store failure at startup is fatal.
func (s *LedgerSource) Run(ctx context.Context, out chan<- domain.QueryRequest) error {
	cursor, err := s.cursors.LoadCursor(ctx, ledgerCursorName)
	if err != nil {
		return fmt.Errorf("loading cursor: %w", err)
	}
	if err := s.loadPending(ctx); err != nil {
		return err
	}

	// Poll immediately on startup, then on every tick.
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		cursor, err = s.poll(ctx, cursor, out)
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll retries held queries, then reads new events until the ledger has no
// more. It returns the cursor to resume from; the error is non-nil only when
// ctx is done.
func (s *LedgerSource) poll(ctx context.Context, cursor string, out chan<- domain.QueryRequest) (string, error) {
	if err := s.retryPending(ctx, out); err != nil {
		return cursor, err
	}
	s.savePending(ctx)

	for {
		events, next, err := s.events.QueryEvents(ctx, cursor, ledgerPageSize)
		if err != nil {
			if ctx.Err() != nil {
				return cursor, ctx.Err()
			}
			logger.With(zap.Error(err)).Warn("ledger poll failed")
			return cursor, nil
		}

		for _, ev := range events {
			err := s.deliver(ctx, ev, out)
			if errors.Is(err, errPendingFull) {
				// The page is read again on the next poll.
				logger.With(zap.Int("pending", maxPendingEvents)).Warn("too many queries waiting for keys, pausing ledger cursor")
				s.savePending(ctx)
				return cursor, nil
			}
			if err != nil {
				return cursor, err
			}
		}
		if !s.savePending(ctx) {
			return cursor, nil
		}

		if next != "" && next != cursor {
			cursor = next
			if err := s.cursors.SaveCursor(ctx, ledgerCursorName, cursor); err != nil {
				logger.With(zap.Error(err)).Warn("saving ledger cursor failed")
			}
		}

		if len(events) < ledgerPageSize {
			return cursor, nil
		}
	}
}

func (s *LedgerSource) retryPending(ctx context.Context, out chan<- domain.QueryRequest) error {
	s.mu.Lock()
	held := make([]domain.QueryEvent, 0, len(s.pending))
	for _, ev := range s.pending {
		held = append(held, ev)
	}
	s.mu.Unlock()

	for _, ev := range held {
		if err := s.deliver(ctx, ev, out); err != nil {
			return err
		}
	}
	return nil
}

// deliver resolves the key for ev and sends the request. Unresolvable
// events are held. The error is errPendingFull or ctx's error.
func (s *LedgerSource) deliver(ctx context.Context, ev domain.QueryEvent, out chan<- domain.QueryRequest) error {
	log := logger.With(zap.String("query_id", ev.QueryID), zap.String("blob_id", ev.DocumentBlobID))

	key, iv, err := s.keys.Resolve(ctx, ev.DocumentBlobID)
	if err != nil {
		return s.hold(ev, log, err)
	}

	req := domain.QueryRequest{
		QueryID:        ev.QueryID,
		DocumentBlobID: ev.DocumentBlobID,
		Question:       ev.Question,
		DecryptionKey:  key,
		IV:             iv,
	}

	select {
	case out <- req:
		s.mu.Lock()
		if _, ok := s.pending[ev.QueryID]; ok {
			delete(s.pending, ev.QueryID)
			s.dirty = true
		}
		s.mu.Unlock()
		log.Debug("query discovered on ledger")
		return nil
	case <-ctx.Done():
		req.Wipe()
		return ctx.Err()
	}
}

// hold keeps ev for a later poll. It returns errPendingFull when ev cannot
// be held.
func (s *LedgerSource) hold(ev domain.QueryEvent, log *zap.Logger, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[ev.QueryID]; ok {
		return nil
	}
	if len(s.pending) >= maxPendingEvents {
		return errPendingFull
	}
	s.pending[ev.QueryID] = ev
	s.dirty = true

	if errors.Is(err, domain.ErrKeyUnavailable) {
		log.Warn("no key for document, holding query until one is added")
		return nil
	}
	log.Warn("resolving document key failed, holding query", zap.Error(err))
	return nil
}

// loadPending restores queries held by an earlier run.
func (s *LedgerSource) loadPending(ctx context.Context) error {
	data, err := s.cursors.LoadCursor(ctx, ledgerPendingName)
	if err != nil {
		return fmt.Errorf("loading held queries: %w", err)
	}
	if data == "" {
		return nil
	}

	var events []domain.QueryEvent
	if err := json.Unmarshal([]byte(data), &events); err != nil {
		logger.With(zap.Error(err)).Warn("discarding unreadable held queries")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		if len(s.pending) >= maxPendingEvents {
			break
		}
		s.pending[ev.QueryID] = ev
	}
	return nil
}

// savePending writes the held queries if they changed. It reports false if
// they could not be saved, in which case the cursor must not advance.
func (s *LedgerSource) savePending(ctx context.Context) bool {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return true
	}
	events := make([]domain.QueryEvent, 0, len(s.pending))
	for _, ev := range s.pending {
		events = append(events, ev)
	}
	s.dirty = false
	s.mu.Unlock()

	slices.SortFunc(events, func(a, b domain.QueryEvent) int {
		return cmp.Compare(a.QueryID, b.QueryID)
	})
	data, err := json.Marshal(events)
	if err == nil {
		err = s.cursors.SaveCursor(ctx, ledgerPendingName, string(data))
	}
	if err != nil {
		logger.With(zap.Error(err)).Warn("saving held queries failed")
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return false
	}
	return true
}
