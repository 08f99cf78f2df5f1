package database

import (
	"context"
)

type contextKey string

const (
	// ScopeKey is the context key for storing the owner-scoped database connection.
	ScopeKey contextKey = "dbScope"
)

// GetScope retrieves the scoped database connection from context.
// Returns nil and false if not present.
func GetScope(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(ScopeKey).(*Scope)
	return scope, ok
}

// SetScope stores the scoped database connection in context.
func SetScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, ScopeKey, scope)
}

// ScopeFunc acquires a scoped connection and returns a context carrying it.
// The cleanup function MUST be called when the work is done.
type ScopeFunc func(ctx context.Context) (context.Context, func(), error)

// SystemScope returns a ScopeFunc that acquires unrestricted connections,
// used by background generation tasks.
func SystemScope(db *DB) ScopeFunc {
	return func(ctx context.Context) (context.Context, func(), error) {
		scope, err := db.WithoutOwner(ctx)
		if err != nil {
			return nil, nil, err
		}
		return SetScope(ctx, scope), scope.Close, nil
	}
}
