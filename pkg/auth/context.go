package auth

import (
	"context"
	"errors"
)

type claimsKey struct{}

// WithClaims returns a context carrying the authenticated claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaims retrieves JWT claims from the request context.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}

// GetUserIDFromContext returns the token subject, or "" when unauthenticated.
func GetUserIDFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok {
		return ""
	}
	return claims.Subject
}

// RequireUserIDFromContext is GetUserIDFromContext that fails when no subject is present.
func RequireUserIDFromContext(ctx context.Context) (string, error) {
	if userID := GetUserIDFromContext(ctx); userID != "" {
		return userID, nil
	}
	return "", errors.New("user ID not found in context")
}
