package providers

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState is the state of a provider circuit breaker.
type BreakerState int

const (
	// BreakerClosed lets calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen blocks calls until ResetAfter has elapsed.
	BreakerOpen
	// BreakerHalfOpen lets a single probe call through.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds configuration for a circuit breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures before the circuit trips.
	Threshold int
	// ResetAfter is how long the circuit stays open before a probe is allowed.
	ResetAfter time.Duration
}

// DefaultBreakerConfig trips after 5 consecutive failures and probes again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Threshold:  5,
		ResetAfter: 30 * time.Second,
	}
}

// Breaker trips open after N consecutive provider failures so that a dead
// vendor does not tie up generation workers for the whole job.
type Breaker struct {
	mu               sync.Mutex
	provider         ProviderID
	consecutiveFails int
	threshold        int
	resetAfter       time.Duration
	lastFailure      time.Time
	state            BreakerState
	now              func() time.Time
}

// NewBreaker creates a closed breaker for a provider.
func NewBreaker(provider ProviderID, config BreakerConfig) *Breaker {
	if config.Threshold < 1 {
		config.Threshold = DefaultBreakerConfig().Threshold
	}
	return &Breaker{
		provider:   provider,
		threshold:  config.Threshold,
		resetAfter: config.ResetAfter,
		state:      BreakerClosed,
		now:        time.Now,
	}
}

// Allow returns nil if a call may proceed, or an unavailable *Error.
// An open breaker moves to half-open once ResetAfter has elapsed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		since := b.now().Sub(b.lastFailure)
		if since > b.resetAfter {
			b.state = BreakerHalfOpen
			return nil
		}
		return NewError(ErrorKindUnavailable, b.provider,
			fmt.Sprintf("circuit breaker open after %d consecutive failures, last %v ago",
				b.consecutiveFails, since.Round(time.Second)), nil)
	case BreakerHalfOpen:
		return NewError(ErrorKindUnavailable, b.provider, "circuit breaker half-open, probe in flight", nil)
	default:
		return NewError(ErrorKindInternal, b.provider, fmt.Sprintf("circuit breaker in unknown state %d", b.state), nil)
	}
}

// RecordSuccess resets the failure count and closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFails = 0
	b.state = BreakerClosed
}

// RecordFailure counts a failure and trips the circuit at the threshold.
// A failed half-open probe reopens the circuit immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFails++
	b.lastFailure = b.now()

	if b.state == BreakerHalfOpen || b.consecutiveFails >= b.threshold {
		b.state = BreakerOpen
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ConsecutiveFailures returns the current count of consecutive failures.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFails
}

// Reset closes the circuit. Used by operators and tests.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFails = 0
	b.state = BreakerClosed
}
