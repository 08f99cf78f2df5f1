package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Middleware guards routes using an AuthService.
type Middleware struct {
	authService AuthService
	logger      *zap.Logger
}

func NewMiddleware(authService AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireAuth validates the bearer token and stores its claims in the request
// context. Failures get a 401 with a WWW-Authenticate challenge.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.authService.ValidateRequest(r)
		if err != nil {
			if !errors.Is(err, ErrMissingAuthorization) {
				m.logger.Debug("Rejected bearer token",
					zap.String("path", r.URL.Path),
					zap.Error(err))
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="ekaya-content"`)
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		next(w, r.WithContext(WithClaims(r.Context(), claims)))
	}
}

// RequireRole allows the request only when the claims carry one of roles.
// Must run after RequireAuth.
func (m *Middleware) RequireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			switch {
			case !ok:
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			case claims.HasRole(roles...):
				next(w, r)
			default:
				m.logger.Warn("Insufficient role for endpoint",
					zap.String("subject", claims.Subject),
					zap.Strings("roles", claims.Roles),
					zap.Strings("required", roles),
					zap.String("path", r.URL.Path))
				writeAuthError(w, http.StatusForbidden, "forbidden", "Insufficient permissions")
			}
		}
	}
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
