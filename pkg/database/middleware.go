package database

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/auth"
)

// WithOwnerContext creates middleware that sets up an owner-scoped DB connection.
// It runs AFTER auth middleware and uses the subject from JWT claims.
// The connection is automatically cleaned up after the handler returns.
func WithOwnerContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ownerID := auth.GetUserIDFromContext(r.Context())
			if ownerID == "" {
				logger.Error("Missing owner in claims")
				writeError(w, http.StatusUnauthorized, "unauthorized", "Missing user in token")
				return
			}

			scope, err := db.WithOwner(r.Context(), ownerID)
			if err != nil {
				logger.Error("Failed to acquire owner connection",
					zap.String("owner_id", ownerID),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}
			defer scope.Close()

			next(w, r.WithContext(SetScope(r.Context(), scope)))
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
