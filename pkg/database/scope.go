package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Scope wraps a pooled connection carrying the owner context used by
// row level security on content_projects and generated_content.
type Scope struct {
	Conn *pgxpool.Conn
}

// Close resets the owner context and releases the connection to the pool.
// This MUST be called to prevent owner context from leaking to the next request.
func (s *Scope) Close() {
	if s.Conn == nil {
		return
	}
	_, _ = s.Conn.Exec(context.Background(), "RESET app.current_owner_id")
	s.Conn.Release()
}

// WithOwner acquires a connection restricted to rows owned by ownerID.
// The returned Scope MUST be closed with defer scope.Close().
func (db *DB) WithOwner(ctx context.Context, ownerID string) (*Scope, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner ID is required")
	}

	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT set_config('app.current_owner_id', $1, false)", ownerID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to set owner context: %w", err)
	}

	return &Scope{Conn: conn}, nil
}

// WithoutOwner acquires an unrestricted connection.
// Use this for background generation jobs that act on behalf of the system.
// The returned Scope MUST be closed with defer scope.Close().
func (db *DB) WithoutOwner(ctx context.Context) (*Scope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Scope{Conn: conn}, nil
}
