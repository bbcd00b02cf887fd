// Package circuitbreaker implements the circuit breaker pattern used to
// keep the card source adapter from hammering a degraded Scryfall
// endpoint within a request's budget. The adapter calls the breaker
// directly around its HTTP round trip.
package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the circuit breaker's current state.
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

// Config tunes breaker behavior.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

// DefaultConfig trips after 5 consecutive upstream failures and probes
// again after 30s, short enough to recover within a single request's 60s
// budget once Scryfall comes back.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// Breaker implements the circuit breaker pattern around an arbitrary
// fallible operation.
type Breaker struct {
	mu     sync.Mutex
	config Config
	state  State

	consecutiveFailures  int
	consecutiveSuccesses int
	openedAt             time.Time
}

// New creates a Breaker starting closed.
func New(config Config) *Breaker {
	return &Breaker{config: config, state: StateClosed}
}

// OpenError is returned when the breaker refuses to let a call through.
type OpenError struct {
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker open, retry in %v", e.RetryAfter)
}

// Execute runs fn if the breaker allows it, recording the outcome.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn(ctx)
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(b.openedAt) >= b.config.Timeout {
			b.state = StateHalfOpen
			b.consecutiveSuccesses = 0
			return nil
		}
		return &OpenError{RetryAfter: b.config.Timeout - time.Since(b.openedAt)}
	case StateHalfOpen:
		return nil
	default:
		return nil
	}
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.consecutiveFailures++
		b.consecutiveSuccesses = 0
		if b.state == StateHalfOpen || b.consecutiveFailures >= b.config.FailureThreshold {
			b.state = StateOpen
			b.openedAt = time.Now()
		}
		return
	}

	b.consecutiveFailures = 0
	if b.state == StateHalfOpen {
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.config.SuccessThreshold {
			b.state = StateClosed
		}
	}
}

// State reports the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
