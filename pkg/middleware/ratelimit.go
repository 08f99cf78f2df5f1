package middleware

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/auth"
	"github.com/ekaya-inc/ekaya-content/pkg/ratelimit"
)

// RateChecker is the subset of ratelimit.Limiter used by the middleware.
type RateChecker interface {
	Check(ctx context.Context, identifier string, scope ratelimit.Scope) (ratelimit.Result, error)
}

// RateLimitOptions configures RateLimit.
type RateLimitOptions struct {
	// TrustForwardedFor uses X-Forwarded-For for the client IP.
	TrustForwardedFor bool
}

type rateLimitBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retry_after"`
}

// RateLimit enforces scope for each request. Authenticated callers are keyed
// by "user:<sub>", anonymous callers by "ip:<addr>". It must run after the
// auth middleware for user keying to apply.
func RateLimit(limiter RateChecker, scope ratelimit.Scope, opts RateLimitOptions, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identifier := RateLimitIdentifier(r, opts.TrustForwardedFor)

			res, err := limiter.Check(r.Context(), identifier, scope)
			if err != nil {
				logger.Error("Rate limit check failed, allowing request",
					zap.String("scope", string(scope)),
					zap.Error(err))
				next(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := int64(math.Ceil(res.RetryAfter.Seconds()))
				logger.Info("Rate limit exceeded",
					zap.String("scope", string(scope)),
					zap.String("identifier", identifier),
					zap.String("path", r.URL.Path))

				h.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(rateLimitBody{
					Error:      "rate_limit_exceeded",
					Message:    "Too many requests, please retry later",
					RetryAfter: retryAfter,
				})
				return
			}

			next(w, r)
		}
	}
}

// RateLimitIdentifier derives the rate limit identity for a request.
func RateLimitIdentifier(r *http.Request, trustForwardedFor bool) string {
	if userID := auth.GetUserIDFromContext(r.Context()); userID != "" {
		return "user:" + userID
	}
	return "ip:" + ClientIP(r, trustForwardedFor)
}
