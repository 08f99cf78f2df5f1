package handlers

import (
	"net/http"

	"github.com/ekaya-inc/ekaya-content/pkg/auth"
	"github.com/ekaya-inc/ekaya-content/pkg/ratelimit"
)

// RouteMiddleware wraps a handler.
type RouteMiddleware func(http.HandlerFunc) http.HandlerFunc

// RateLimitFunc returns the rate limiting middleware for a scope.
type RateLimitFunc func(scope ratelimit.Scope) RouteMiddleware

// Guards bundles the middleware applied to authenticated API routes.
type Guards struct {
	Auth *auth.Middleware
	// Owner attaches an owner-scoped database connection.
	Owner     RouteMiddleware
	RateLimit RateLimitFunc
}

// withDB authenticates, rate limits, then scopes the database to the caller.
func (g Guards) withDB(scope ratelimit.Scope, h http.HandlerFunc) http.HandlerFunc {
	return g.Auth.RequireAuth(g.RateLimit(scope)(g.Owner(h)))
}

// withoutDB authenticates and rate limits.
func (g Guards) withoutDB(scope ratelimit.Scope, h http.HandlerFunc) http.HandlerFunc {
	return g.Auth.RequireAuth(g.RateLimit(scope)(h))
}

// admin authenticates and requires the admin role.
func (g Guards) admin(h http.HandlerFunc) http.HandlerFunc {
	return g.Auth.RequireAuth(g.Auth.RequireRole("admin")(h))
}
