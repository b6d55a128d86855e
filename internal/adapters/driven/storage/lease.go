package storage

import (
	"context"
	"sync"
	"time"

	"github.com/anynomousfriend/Fathom-0x/internal/logger"
)

// RenewFunc extends a held lease. It reports false once the lease belongs to
// someone else or no longer exists.
type RenewFunc func(ctx context.Context) (bool, error)

// RenewInterval is how often a lease with the given TTL is renewed.
func RenewInterval(ttl time.Duration) time.Duration {
	return ttl / 3
}

// KeepAlive calls renew every interval until the returned stop func is
// called. A failed renewal is retried on the next tick; a lost lease ends the
// loop. stop waits for any renewal in progress and is idempotent.
func KeepAlive(interval time.Duration, name string, renew RenewFunc) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			renewCtx, cancelRenew := context.WithTimeout(ctx, interval)
			held, err := renew(renewCtx)
			cancelRenew()

			switch {
			case ctx.Err() != nil:
				return
			case err != nil:
				logger.Warn("renewing lease %s: %v", name, err)
			case !held:
				logger.Warn("lease %s lost before release", name)
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
