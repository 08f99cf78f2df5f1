// Package retry re-runs vendor calls that fail with transient errors.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config controls attempts and exponential backoff between them.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// JitterFactor spreads each delay by +/- this fraction (0.0-1.0).
	JitterFactor float64
	// MaxSameErrorType stops early after this many consecutive failures of
	// the same class (e.g. three 429s in a row). Zero disables the check.
	MaxSameErrorType int
}

// ProviderConfig returns defaults for vendor API submit calls. Vendors
// rate limit in seconds, so the first delay is half a second.
func ProviderConfig() *Config {
	return &Config{
		MaxRetries:       2,
		InitialDelay:     500 * time.Millisecond,
		MaxDelay:         4 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.2,
		MaxSameErrorType: 3,
	}
}

// RetryableError is implemented by errors that know whether they are transient.
// Provider and LLM errors implement it.
type RetryableError interface {
	error
	IsRetryable() bool
}

// transientMarkers are substrings of errors from vendors and the network
// stack that indicate a later attempt may succeed.
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"temporary failure",
	"network is unreachable",
	"429",
	"500",
	"502",
	"503",
	"504",
	"rate limit",
	"too many requests",
	"service unavailable",
	"overloaded",
}

// IsRetryable reports whether err is worth another attempt. An error in the
// chain implementing RetryableError decides; otherwise the message is matched
// against known transient markers.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// errorClass buckets an error so repeated identical failures can be detected.
func errorClass(err error) string {
	msg := strings.ToLower(err.Error())

	for _, code := range []string{"429", "500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return code
		}
	}

	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return "connection"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return "timeout"
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return "rate_limit"
	case strings.Contains(msg, "overloaded"):
		return "overloaded"
	}
	return "other"
}

// jitter applies +/- factor randomisation to d.
func jitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return d
	}
	return time.Duration(float64(d) * (1 + factor*(rand.Float64()*2-1)))
}

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DoIfRetryableWithResult calls fn until it succeeds, fails with a
// non-retryable error, or runs out of attempts. A run of MaxSameErrorType
// identical failures ends early with a wrapped error. A nil cfg uses
// ProviderConfig.
func DoIfRetryableWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = ProviderConfig()
	}

	var zero T
	var lastErr error
	delay := cfg.InitialDelay
	sameCount := 0
	lastClass := ""

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		class := errorClass(err)
		if class == lastClass {
			sameCount++
		} else {
			sameCount, lastClass = 1, class
		}
		if cfg.MaxSameErrorType > 0 && sameCount >= cfg.MaxSameErrorType {
			return zero, fmt.Errorf("repeated error (%d times, type=%s): %w", sameCount, class, err)
		}

		if attempt == cfg.MaxRetries {
			break
		}
		if err := sleep(ctx, jitter(delay, cfg.JitterFactor)); err != nil {
			return zero, err
		}
		delay = min(time.Duration(float64(delay)*cfg.Multiplier), cfg.MaxDelay)
	}

	return zero, lastErr
}
