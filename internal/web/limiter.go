package web

// limiter.go bounds how many ingest requests may be in flight at once.
//
// The Ingestor runs one pass at a time, so every request beyond the first waits
// on it while holding a connection and a goroutine. The limiter caps that queue:
// when every slot is taken, a request waits up to maxWait and then fails with
// core.ErrTooManyPasses.

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/tsvingest/internal/core"
)

// passLimiter is a counting semaphore over ingest requests.
type passLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// PassStatus is the limiter snapshot reported by /health.
type PassStatus struct {
	Active    int `json:"active"`
	Available int `json:"available"`
	Max       int `json:"max"`
}

func newPassLimiter(maxPending int, maxWait time.Duration) *passLimiter {
	if maxPending <= 0 {
		maxPending = 1
	}
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}
	return &passLimiter{
		slots:   make(chan struct{}, maxPending),
		maxWait: maxWait,
	}
}

// acquire takes a slot, waiting at most maxWait. The caller must release it.
func (l *passLimiter) acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timer.C:
		return core.ErrTooManyPasses
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *passLimiter) release() {
	l.active.Add(-1)
	<-l.slots
}

func (l *passLimiter) status() PassStatus {
	return PassStatus{
		Active:    int(l.active.Load()),
		Available: cap(l.slots) - len(l.slots),
		Max:       cap(l.slots),
	}
}
