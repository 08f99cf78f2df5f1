package providers

import (
	"context"
	"fmt"
	"time"
)

// PollState is the state reported by a status check.
type PollState int

const (
	PollStatePending PollState = iota
	PollStateDone
	PollStateFailed
)

// PollOutcome is the result of one status check.
type PollOutcome struct {
	State PollState
	Asset *Asset
	Err   error
}

// PollDone reports a finished job.
func PollDone(asset *Asset) PollOutcome {
	return PollOutcome{State: PollStateDone, Asset: asset}
}

// PollFailed reports a job the provider failed or rejected.
func PollFailed(err error) PollOutcome {
	return PollOutcome{State: PollStateFailed, Err: err}
}

// PollPending reports a job that is still running.
func PollPending() PollOutcome {
	return PollOutcome{State: PollStatePending}
}

// Poller waits for an asynchronous vendor job with a bounded number of checks.
type Poller struct {
	Provider    ProviderID
	MaxAttempts int
	Interval    time.Duration
	// BackoffFactor multiplies Interval after each pending check. Values <= 1 keep it fixed.
	BackoffFactor float64
	// MaxInterval caps the grown interval. Zero means no cap.
	MaxInterval time.Duration
}

// Poll calls check until it reports done or failed, or MaxAttempts checks
// have reported pending. Exhaustion returns a timeout *Error, which is
// distinct from the rejected *Error returned for a failed job.
// A transient error from check counts as a pending attempt.
func (p Poller) Poll(ctx context.Context, check func(ctx context.Context) PollOutcome) (*Asset, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	interval := p.Interval

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		outcome := check(ctx)
		switch outcome.State {
		case PollStateDone:
			return outcome.Asset, nil
		case PollStateFailed:
			if pe, ok := outcome.Err.(*Error); ok {
				return nil, pe
			}
			return nil, NewError(ErrorKindRejected, p.Provider, "generation failed", outcome.Err)
		}
		if outcome.Err != nil {
			lastErr = outcome.Err
		}

		if attempt == attempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, Classify(p.Provider, ctx.Err())
		case <-timer.C:
		}

		if p.BackoffFactor > 1 {
			interval = time.Duration(float64(interval) * p.BackoffFactor)
			if p.MaxInterval > 0 && interval > p.MaxInterval {
				interval = p.MaxInterval
			}
		}
	}

	return nil, NewError(ErrorKindTimeout, p.Provider,
		fmt.Sprintf("still pending after %d status checks", attempts), lastErr)
}
