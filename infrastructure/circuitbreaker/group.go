package circuitbreaker

import (
	"context"
	"sync"
	"time"
)

// Group lazily creates one Breaker per key (for example per remote host)
// sharing a single Config. Breakers idle for longer than Config.IdleTTL are
// dropped once they are settled, so keys taken from user input do not
// accumulate.
type Group struct {
	config Config
	now    func() time.Time

	mu        sync.Mutex
	breakers  map[string]*groupEntry
	lastSweep time.Time
}

type groupEntry struct {
	breaker  *Breaker
	lastUsed time.Time
}

// NewGroup creates an empty group.
func NewGroup(config Config) *Group {
	config.setDefaults()
	return &Group{config: config, now: time.Now, breakers: make(map[string]*groupEntry)}
}

// Get returns the breaker for key, creating it on first use.
func (g *Group) Get(key string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Sub(g.lastSweep) >= g.config.IdleTTL {
		g.sweepLocked(now)
	}

	e, ok := g.breakers[key]
	if !ok {
		b := New(key, g.config)
		b.now = g.now
		e = &groupEntry{breaker: b}
		g.breakers[key] = e
	}
	e.lastUsed = now
	return e.breaker
}

func (g *Group) sweepLocked(now time.Time) {
	g.lastSweep = now
	for key, e := range g.breakers {
		if now.Sub(e.lastUsed) >= g.config.IdleTTL && e.breaker.settled() {
			delete(g.breakers, key)
		}
	}
}

// Execute runs fn through the breaker for key.
func (g *Group) Execute(ctx context.Context, key string, fn func(context.Context) error) error {
	return g.Get(key).Execute(ctx, fn)
}

// Open returns the keys whose circuit is currently open.
func (g *Group) Open() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var keys []string
	for key, e := range g.breakers {
		if e.breaker.State() == StateOpen {
			keys = append(keys, key)
		}
	}
	return keys
}

// Len returns the number of breakers currently held.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.breakers)
}
