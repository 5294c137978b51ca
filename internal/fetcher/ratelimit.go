package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter spaces out requests to the same host. A zero rate disables it.
// Limiters left untouched for idleTTL with a full bucket are dropped.
type hostLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

func newHostLimiter(rps float64, burst int, idleTTL time.Duration) *hostLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &hostLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
		limiters: make(map[string]*limiterEntry),
	}
}

// Wait blocks until host may be contacted or ctx ends.
func (h *hostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil {
		return nil
	}
	return h.get(host).Wait(ctx)
}

func (h *hostLimiter) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if now.Sub(h.lastSweep) >= h.idleTTL {
		h.sweepLocked(now)
	}

	e, ok := h.limiters[host]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(h.limit, h.burst)}
		h.limiters[host] = e
	}
	e.lastUsed = now
	return e.limiter
}

// sweepLocked drops limiters that would admit a full burst anyway, so a
// fresh limiter behaves the same.
func (h *hostLimiter) sweepLocked(now time.Time) {
	h.lastSweep = now
	for host, e := range h.limiters {
		if now.Sub(e.lastUsed) >= h.idleTTL && e.limiter.TokensAt(now) >= float64(h.burst) {
			delete(h.limiters, host)
		}
	}
}

func (h *hostLimiter) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.limiters)
}
