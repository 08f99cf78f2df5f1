package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/config"
	"github.com/ekaya-inc/ekaya-content/pkg/services/workqueue"
)

const pingTimeout = 2 * time.Second

// Pinger is a dependency that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Service     string            `json:"service"`
	GoVersion   string            `json:"go_version"`
	Hostname    string            `json:"hostname"`
	Environment string            `json:"environment"`
	Components  map[string]string `json:"components"`
	Queue       *workqueue.Stats  `json:"queue,omitempty"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	db     Pinger
	cache  Pinger
	queue  QueueInspector
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. Any dependency may be nil.
func NewHealthHandler(cfg *config.Config, db, cache Pinger, queue QueueInspector, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, db: db, cache: cache, queue: queue, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
// Liveness only; it does not touch dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"}); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Reports version, environment and the state of the database, cache and
// generation queue. A database failure returns 503; a cache failure only
// degrades rate limiting and is reported without failing the check.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "ekaya-content",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
		Components:  map[string]string{},
	}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("Database ping failed", zap.Error(err))
			response.Components["database"] = "unavailable"
			response.Status = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			response.Components["database"] = "ok"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			h.logger.Warn("Cache ping failed, rate limiting is failing open", zap.Error(err))
			response.Components["cache"] = "degraded"
			if response.Status == "ok" {
				response.Status = "degraded"
			}
		} else {
			response.Components["cache"] = "ok"
		}
	}

	if h.queue != nil {
		stats := h.queue.Stats()
		response.Queue = &stats
		if stats.Closed {
			response.Components["queue"] = "closed"
		} else {
			response.Components["queue"] = "ok"
		}
	}

	if err := WriteJSON(w, status, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
