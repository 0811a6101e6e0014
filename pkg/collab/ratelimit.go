package collab

import (
	"context"
	"sync"
	"time"
)

// rateLimiter enforces a per-second request ceiling for one adapter
// instance. The lock is released while waiting for the window to roll
// over, so a blocked caller never stalls other adapters or the executor's
// sibling stages.
type rateLimiter struct {
	mu          sync.Mutex
	limit       int
	windowStart time.Time
	count       int
}

func newRateLimiter(perSecond int) *rateLimiter {
	if perSecond <= 0 {
		return nil
	}
	return &rateLimiter{limit: perSecond}
}

// Wait blocks until the caller may issue a request, or until ctx is done.
// A nil limiter admits everything.
func (l *rateLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	for {
		l.mu.Lock()
		now := time.Now()
		if now.Sub(l.windowStart) >= time.Second {
			l.windowStart = now
			l.count = 0
		}
		if l.count < l.limit {
			l.count++
			l.mu.Unlock()
			return nil
		}
		wait := time.Second - now.Sub(l.windowStart)
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
