// Package circuitbreaker stops calls to a failing dependency for a cooldown
// period and then lets a probe through to test recovery.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling fn while the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the state of the circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 1
	defaultTimeout          = 60 * time.Second
)

// Config configures a circuit breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int
	// Timeout is how long the circuit stays open before a probe is allowed.
	Timeout time.Duration
	// IsFailure decides which errors count against the circuit. Errors it
	// rejects are still returned to the caller but reset the failure streak.
	IsFailure func(error) bool
	// OnStateChange is called with the breaker's key on every transition.
	OnStateChange func(key string, from, to State)
	// IdleTTL is how long a Group keeps a breaker nobody asked for.
	// Defaults to Timeout.
	IdleTTL time.Duration
}

func (c *Config) setDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = defaultFailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = defaultSuccessThreshold
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = c.Timeout
	}
	if c.IsFailure == nil {
		c.IsFailure = func(err error) bool { return err != nil }
	}
}

// Breaker implements the circuit breaker pattern for a single dependency.
type Breaker struct {
	key    string
	config Config
	now    func() time.Time

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	openedAt        time.Time
	halfOpenPending bool
}

// New creates a breaker. key identifies it in state-change callbacks.
func New(key string, config Config) *Breaker {
	config.setDefaults()
	return &Breaker{key: key, config: config, now: time.Now}
}

// Execute runs fn unless the circuit is open. In the half-open state only one
// probe runs at a time; concurrent callers get ErrCircuitOpen.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := fn(ctx)
	b.afterCall(err)
	return err
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		remaining := b.config.Timeout - b.now().Sub(b.openedAt)
		if remaining > 0 {
			return fmt.Errorf("%w: %s retries in %s", ErrCircuitOpen, b.key, remaining.Round(time.Millisecond))
		}
		b.transitionTo(StateHalfOpen)
		b.halfOpenPending = true
		return nil
	case StateHalfOpen:
		if b.halfOpenPending {
			return fmt.Errorf("%w: %s probe in flight", ErrCircuitOpen, b.key)
		}
		b.halfOpenPending = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) afterCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.halfOpenPending = false

	if b.config.IsFailure(err) {
		b.failureCount++
		if b.state == StateHalfOpen || b.failureCount >= b.config.FailureThreshold {
			b.openedAt = b.now()
			b.transitionTo(StateOpen)
		}
		return
	}

	b.failureCount = 0
	if b.state == StateHalfOpen {
		b.successCount++
		if b.successCount >= b.config.SuccessThreshold {
			b.transitionTo(StateClosed)
		}
	}
}

func (b *Breaker) transitionTo(next State) {
	if b.state == next {
		return
	}

	prev := b.state
	b.state = next
	b.failureCount = 0
	b.successCount = 0

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.key, prev, next)
	}
}

// State returns the current state of the circuit breaker.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// settled reports whether dropping the breaker loses nothing: it is closed,
// its cooldown has run out, or it is half-open with no probe in flight.
func (b *Breaker) settled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		return b.now().Sub(b.openedAt) >= b.config.Timeout
	case StateHalfOpen:
		return !b.halfOpenPending
	default:
		return true
	}
}

// Reset closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.halfOpenPending = false
	b.transitionTo(StateClosed)
}
