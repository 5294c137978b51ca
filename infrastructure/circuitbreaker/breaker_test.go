package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream 503")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	b := New("example.com", cfg)
	b.now = clock.Now
	return b, clock
}

func fail(context.Context) error    { return errUpstream }
func succeed(context.Context) error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(Config{FailureThreshold: 3, Timeout: time.Minute})
	ctx := context.Background()

	for i := range 3 {
		if err := b.Execute(ctx, fail); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: error = %v, want upstream error", i, err)
		}
	}

	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	called := false
	err := b.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("fn must not run while the circuit is open")
	}
}

func TestBreaker_HalfOpenProbeCloses(t *testing.T) {
	t.Parallel()

	b, clock := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Minute})
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	clock.Advance(time.Minute)

	if err := b.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %s, want closed", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	b, clock := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Minute})
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	clock.Advance(time.Minute)
	_ = b.Execute(ctx, fail)

	if b.State() != StateOpen {
		t.Errorf("state = %s, want open", b.State())
	}
}

func TestBreaker_IsFailureFiltersErrors(t *testing.T) {
	t.Parallel()

	notFound := errors.New("404")
	b, _ := newTestBreaker(Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return errors.Is(err, errUpstream) },
	})

	for range 5 {
		_ = b.Execute(context.Background(), func(context.Context) error { return notFound })
	}

	if b.State() != StateClosed {
		t.Errorf("state = %s, want closed for ignored errors", b.State())
	}
}

func TestBreaker_OnStateChange(t *testing.T) {
	t.Parallel()

	var transitions []State
	b, clock := newTestBreaker(Config{
		FailureThreshold: 1,
		Timeout:          time.Second,
		OnStateChange: func(key string, _, to State) {
			if key != "example.com" {
				t.Errorf("key = %q", key)
			}
			transitions = append(transitions, to)
		},
	})

	_ = b.Execute(context.Background(), fail)
	clock.Advance(time.Second)
	_ = b.Execute(context.Background(), succeed)

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestGroup_IsolatesKeys(t *testing.T) {
	t.Parallel()

	g := NewGroup(Config{FailureThreshold: 1, Timeout: time.Hour})
	ctx := context.Background()

	_ = g.Execute(ctx, "bad.example", fail)

	if err := g.Execute(ctx, "good.example", succeed); err != nil {
		t.Errorf("good host error = %v", err)
	}
	if err := g.Execute(ctx, "bad.example", succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("bad host error = %v, want ErrCircuitOpen", err)
	}

	open := g.Open()
	if len(open) != 1 || open[0] != "bad.example" {
		t.Errorf("Open() = %v, want [bad.example]", open)
	}
	if g.Get("bad.example") != g.Get("bad.example") {
		t.Error("Get must return the same breaker for a key")
	}
}

func newTestGroup(cfg Config) (*Group, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	g := NewGroup(cfg)
	g.now = clock.Now
	return g, clock
}

func TestGroup_EvictsIdleBreakers(t *testing.T) {
	t.Parallel()

	g, clock := newTestGroup(Config{FailureThreshold: 1, Timeout: time.Minute, IdleTTL: 30 * time.Second})
	ctx := context.Background()

	_ = g.Execute(ctx, "healthy.example", succeed)
	_ = g.Execute(ctx, "down.example", fail)

	clock.Advance(31 * time.Second)
	_ = g.Execute(ctx, "fresh.example", succeed)

	if got := g.Len(); got != 2 {
		t.Errorf("Len() = %d after first sweep, want 2 (open circuit kept)", got)
	}
	if open := g.Open(); len(open) != 1 || open[0] != "down.example" {
		t.Errorf("Open() = %v, want [down.example]", open)
	}

	clock.Advance(30 * time.Second)
	_ = g.Execute(ctx, "fresh.example", succeed)

	if got := g.Len(); got != 1 {
		t.Errorf("Len() = %d after cooldown, want 1", got)
	}
	if open := g.Open(); len(open) != 0 {
		t.Errorf("Open() = %v, want none", open)
	}
}

func TestGroup_BoundedByDistinctKeys(t *testing.T) {
	t.Parallel()

	g, clock := newTestGroup(Config{Timeout: time.Minute})
	ctx := context.Background()

	for i := range 5000 {
		_ = g.Execute(ctx, fmt.Sprintf("h%d.invalid", i), succeed)
	}
	if got := g.Len(); got != 5000 {
		t.Fatalf("Len() = %d, want 5000", got)
	}

	clock.Advance(time.Minute)
	_ = g.Execute(ctx, "next.example", succeed)

	if got := g.Len(); got != 1 {
		t.Errorf("Len() = %d after idle sweep, want 1", got)
	}
}
