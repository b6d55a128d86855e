package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenewInterval(t *testing.T) {
	assert.Equal(t, 40*time.Second, RenewInterval(2*time.Minute))
}

func TestKeepAlive_RenewsUntilStopped(t *testing.T) {
	var calls atomic.Int32
	stop := KeepAlive(5*time.Millisecond, "q1", func(context.Context) (bool, error) {
		calls.Add(1)
		return true, nil
	})

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	stop()

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestKeepAlive_RetriesAfterError(t *testing.T) {
	var calls atomic.Int32
	stop := KeepAlive(5*time.Millisecond, "q1", func(context.Context) (bool, error) {
		if calls.Add(1) == 1 {
			return false, errors.New("connection reset")
		}
		return true, nil
	})
	defer stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestKeepAlive_StopsWhenLost(t *testing.T) {
	var calls atomic.Int32
	stop := KeepAlive(5*time.Millisecond, "q1", func(context.Context) (bool, error) {
		calls.Add(1)
		return false, nil
	})
	defer stop()

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestKeepAlive_StopIsIdempotent(t *testing.T) {
	stop := KeepAlive(time.Hour, "q1", func(context.Context) (bool, error) { return true, nil })

	stop()
	stop()
}
