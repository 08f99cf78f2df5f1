// Package ratelimit implements sliding-window rate limiting over a cache.Store.
//
// Each (scope, identifier) pair owns one sorted set keyed
// "rate_limit:{scope}:{identifier}". A check trims entries older than the
// window, counts the remainder, records the current request and refreshes the
// key TTL in a single atomic unit. Denied requests are recorded too, so a
// client that keeps hammering stays limited.
//
// The limiter fails open: if the store is missing or errors, the request is
// allowed with the full limit remaining and a warning is logged.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/cache"
)

// ErrUnknownScope is returned by Check for scopes not in the policy table.
var ErrUnknownScope = errors.New("unknown rate limit scope")

const keyPrefix = "rate_limit"

// Scope names a rate limit policy.
type Scope string

const (
	ScopeLogin      Scope = "login"
	ScopeRegister   Scope = "register"
	ScopeAPIGeneral Scope = "api_general"
	ScopeAPIMedia   Scope = "api_media"
	ScopeAPIOAuth   Scope = "api_oauth"
)

// Policy is the limit and window for a scope.
type Policy struct {
	Limit  int64
	Window time.Duration
}

// DefaultPolicies is the static scope table.
var DefaultPolicies = map[Scope]Policy{
	ScopeLogin:      {Limit: 5, Window: 15 * time.Minute},
	ScopeRegister:   {Limit: 3, Window: time.Hour},
	ScopeAPIGeneral: {Limit: 1000, Window: time.Hour},
	ScopeAPIMedia:   {Limit: 50, Window: time.Hour},
	ScopeAPIOAuth:   {Limit: 10, Window: 10 * time.Minute},
}

// Result is the outcome of a single check.
type Result struct {
	Allowed   bool
	Remaining int64
	Limit     int64
	ResetAt   time.Time
	// RetryAfter is set only when the request is denied.
	RetryAfter time.Duration
	// Degraded reports that the store was unavailable and the check failed open.
	Degraded bool
}

// Limiter checks requests against per-scope sliding windows.
type Limiter struct {
	store    cache.Store
	policies map[Scope]Policy
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithPolicies replaces the scope table.
func WithPolicies(policies map[Scope]Policy) Option {
	return func(l *Limiter) { l.policies = policies }
}

// New creates a Limiter. A nil store is allowed and makes every check fail open.
func New(store cache.Store, logger *zap.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		store:    store,
		policies: DefaultPolicies,
		now:      time.Now,
		logger:   logger.Named("ratelimit"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the store key for a scope and identifier.
func Key(scope Scope, identifier string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, scope, identifier)
}

// Policy returns the policy for scope.
func (l *Limiter) Policy(scope Scope) (Policy, bool) {
	p, ok := l.policies[scope]
	return p, ok
}

// Check records a request for identifier under scope and reports whether it is allowed.
func (l *Limiter) Check(ctx context.Context, identifier string, scope Scope) (Result, error) {
	policy, ok := l.policies[scope]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownScope, scope)
	}

	now := l.now()
	resetAt := now.Add(policy.Window)

	if l.store == nil {
		return l.failOpen(policy, resetAt, scope, nil), nil
	}

	key := Key(scope, identifier)
	// Members must be unique so concurrent requests in the same microsecond
	// each occupy a slot.
	member := strconv.FormatInt(now.UnixMicro(), 10) + "-" + uuid.NewString()

	count, err := l.store.SlidingWindow(ctx, key, now.Add(-policy.Window), now, member, policy.Window)
	if err != nil {
		return l.failOpen(policy, resetAt, scope, err), nil
	}

	res := Result{
		Allowed:   count < policy.Limit,
		Remaining: max(0, policy.Limit-count-1),
		Limit:     policy.Limit,
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		res.RetryAfter = policy.Window
	}
	return res, nil
}

func (l *Limiter) failOpen(policy Policy, resetAt time.Time, scope Scope, err error) Result {
	fields := []zap.Field{zap.String("scope", string(scope))}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.logger.Warn("rate limiter degraded, allowing request", fields...)

	return Result{
		Allowed:   true,
		Remaining: policy.Limit,
		Limit:     policy.Limit,
		ResetAt:   resetAt,
		Degraded:  true,
	}
}

// Reset clears the window for identifier under scope.
func (l *Limiter) Reset(ctx context.Context, identifier string, scope Scope) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Delete(ctx, Key(scope, identifier)); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

// ResetIdentifier clears every scope's window for identifier.
func (l *Limiter) ResetIdentifier(ctx context.Context, identifier string) (int, error) {
	if l.store == nil {
		return 0, nil
	}
	keys, err := l.store.Keys(ctx, fmt.Sprintf("%s:*:%s", keyPrefix, identifier))
	if err != nil {
		return 0, fmt.Errorf("failed to list rate limit keys: %w", err)
	}
	if err := l.store.Delete(ctx, keys...); err != nil {
		return 0, fmt.Errorf("failed to delete rate limit keys: %w", err)
	}
	return len(keys), nil
}
