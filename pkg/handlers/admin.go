package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/services/workqueue"
)

// RateLimitResetter clears rate limit windows.
type RateLimitResetter interface {
	ResetIdentifier(ctx context.Context, identifier string) (int, error)
}

// QueueInspector exposes work queue state.
type QueueInspector interface {
	Stats() workqueue.Stats
	GetTasks() []workqueue.TaskSnapshot
}

// RateLimitResetResponse reports how many windows were cleared.
type RateLimitResetResponse struct {
	Identifier  string `json:"identifier"`
	KeysDeleted int    `json:"keys_deleted"`
}

// QueueStatsResponse is the generation queue state.
type QueueStatsResponse struct {
	Stats workqueue.Stats          `json:"stats"`
	Tasks []workqueue.TaskSnapshot `json:"tasks"`
}

// AdminHandler serves operator endpoints.
type AdminHandler struct {
	limiter RateLimitResetter
	queue   QueueInspector
	logger  *zap.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(limiter RateLimitResetter, queue QueueInspector, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{limiter: limiter, queue: queue, logger: logger}
}

// RegisterRoutes registers the admin routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.HandleFunc("DELETE /admin/rate-limits/{identifier}", g.admin(h.ResetRateLimits))
	mux.HandleFunc("GET /admin/queue/stats", g.admin(h.QueueStats))
}

// ResetRateLimits handles DELETE /admin/rate-limits/{identifier}.
// The identifier has the form user:<id> or ip:<addr>.
func (h *AdminHandler) ResetRateLimits(w http.ResponseWriter, r *http.Request) {
	identifier := r.PathValue("identifier")
	if !strings.HasPrefix(identifier, "user:") && !strings.HasPrefix(identifier, "ip:") {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_identifier", "identifier must start with user: or ip:"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if strings.ContainsAny(identifier, "*?[]") {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_identifier", "identifier must not contain wildcards"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	n, err := h.limiter.ResetIdentifier(r.Context(), identifier)
	if err != nil {
		h.logger.Error("Failed to reset rate limits", zap.String("identifier", identifier), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to reset rate limits"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.logger.Info("Rate limits reset", zap.String("identifier", identifier), zap.Int("keys", n))
	if err := WriteJSON(w, http.StatusOK, RateLimitResetResponse{Identifier: identifier, KeysDeleted: n}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// QueueStats handles GET /admin/queue/stats.
func (h *AdminHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	resp := QueueStatsResponse{
		Stats: h.queue.Stats(),
		Tasks: h.queue.GetTasks(),
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
