package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/auth"
	"github.com/ekaya-inc/ekaya-content/pkg/cache"
	"github.com/ekaya-inc/ekaya-content/pkg/models"
	"github.com/ekaya-inc/ekaya-content/pkg/ratelimit"
	"github.com/ekaya-inc/ekaya-content/pkg/services"
)

// maxGenerateBody bounds generation request bodies.
const maxGenerateBody = 64 << 10

const (
	// IdempotencyKeyHeader lets clients retry POST /content/generate safely.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader is set on responses replayed from a stored key.
	IdempotentReplayHeader = "Idempotent-Replayed"

	maxIdempotencyKey = 255
)

// GenerationAccepted is returned when a generation job has been queued.
type GenerationAccepted struct {
	ProjectID string               `json:"project_id"`
	Status    models.ProjectStatus `json:"status"`
	Message   string               `json:"message"`
}

// ContentListResponse wraps the content rows of a project.
type ContentListResponse struct {
	ProjectID string                     `json:"project_id"`
	Content   []*models.GeneratedContent `json:"generated_content"`
}

// PlatformsResponse lists the supported platforms.
type PlatformsResponse struct {
	Platforms []PlatformInfo `json:"platforms"`
}

// PlatformInfo is a platform's publishing constraints.
type PlatformInfo struct {
	*models.PlatformSpec
	ToneSuggestions []string `json:"tone_suggestions"`
}

// ContentHandler serves content projects and their generated content.
type ContentHandler struct {
	service services.ContentService
	logger  *zap.Logger

	idempotency    cache.Store
	idempotencyTTL time.Duration
}

// NewContentHandler creates a content handler.
func NewContentHandler(service services.ContentService, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		service: service,
		logger:  logger,
	}
}

// WithIdempotency remembers accepted generations per Idempotency-Key for ttl,
// so a retried request returns the original project instead of a new one.
// A nil store leaves the feature off.
func (h *ContentHandler) WithIdempotency(store cache.Store, ttl time.Duration) *ContentHandler {
	h.idempotency = store
	h.idempotencyTTL = ttl
	return h
}

// RegisterRoutes registers the content routes on the given mux.
func (h *ContentHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.HandleFunc("POST /content/generate", g.withDB(ratelimit.ScopeAPIMedia, h.Generate))
	mux.HandleFunc("GET /content/projects", g.withDB(ratelimit.ScopeAPIGeneral, h.ListProjects))
	mux.HandleFunc("GET /content/projects/{pid}", g.withDB(ratelimit.ScopeAPIGeneral, h.GetProject))
	mux.HandleFunc("DELETE /content/projects/{pid}", g.withDB(ratelimit.ScopeAPIGeneral, h.DeleteProject))
	mux.HandleFunc("POST /content/projects/{pid}/regenerate", g.withDB(ratelimit.ScopeAPIMedia, h.Regenerate))
	mux.HandleFunc("GET /content/projects/{pid}/content", g.withDB(ratelimit.ScopeAPIGeneral, h.ListContent))
	mux.HandleFunc("PATCH /content/items/{cid}", g.withDB(ratelimit.ScopeAPIGeneral, h.UpdateContent))
	mux.HandleFunc("GET /content/platforms", g.withoutDB(ratelimit.ScopeAPIGeneral, h.Platforms))

	// Short aliases.
	mux.HandleFunc("GET /projects/{pid}", g.withDB(ratelimit.ScopeAPIGeneral, h.GetProject))
	mux.HandleFunc("POST /projects/{pid}/regenerate", g.withDB(ratelimit.ScopeAPIMedia, h.Regenerate))
}

// Generate handles POST /content/generate.
// Validates the request, stores the project and queues generation. Returns 202.
func (h *ContentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Missing user in token"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	idemKey := r.Header.Get(IdempotencyKeyHeader)
	if len(idemKey) > maxIdempotencyKey {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_idempotency_key", "Idempotency-Key must be at most 255 characters"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if prior, ok := h.lookupIdempotent(r.Context(), ownerID, idemKey); ok {
		w.Header().Set(IdempotentReplayHeader, "true")
		if err := WriteJSON(w, http.StatusAccepted, prior); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}

	var req services.GenerateRequest
	if !decodeJSON(w, r, maxGenerateBody, &req, h.logger) {
		return
	}

	project, err := h.service.Generate(r.Context(), ownerID, req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to start generation", h.logger, zap.String("owner_id", ownerID))
		return
	}

	resp := GenerationAccepted{
		ProjectID: project.ID.String(),
		Status:    project.Status,
		Message:   "Content generation started",
	}
	h.storeIdempotent(r.Context(), ownerID, idemKey, resp)
	if err := WriteJSON(w, http.StatusAccepted, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func idempotencyCacheKey(ownerID, key string) string {
	sum := sha256.Sum256([]byte(ownerID + "\x00" + key))
	return "idempotency:generate:" + hex.EncodeToString(sum[:])
}

// lookupIdempotent returns the stored response for key. Store errors are
// logged and treated as a miss.
func (h *ContentHandler) lookupIdempotent(ctx context.Context, ownerID, key string) (GenerationAccepted, bool) {
	var prior GenerationAccepted
	if h.idempotency == nil || key == "" {
		return prior, false
	}
	err := cache.GetJSON(ctx, h.idempotency, idempotencyCacheKey(ownerID, key), &prior)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			h.logger.Warn("Idempotency lookup failed", zap.Error(err))
		}
		return prior, false
	}
	return prior, true
}

func (h *ContentHandler) storeIdempotent(ctx context.Context, ownerID, key string, resp GenerationAccepted) {
	if h.idempotency == nil || key == "" {
		return
	}
	if err := cache.SetJSON(ctx, h.idempotency, idempotencyCacheKey(ownerID, key), resp, h.idempotencyTTL); err != nil {
		h.logger.Warn("Failed to store idempotency key", zap.Error(err))
	}
}

// ListProjects handles GET /content/projects?status=&page=&per_page=.
func (h *ContentHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(w, r, "page", 1, h.logger)
	if !ok {
		return
	}
	perPage, ok := queryInt(w, r, "per_page", services.DefaultPerPage, h.logger)
	if !ok {
		return
	}

	ownerID := auth.GetUserIDFromContext(r.Context())
	result, err := h.service.ListProjects(r.Context(), ownerID, r.URL.Query().Get("status"), page, perPage)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list projects", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetProject handles GET /content/projects/{pid}.
// Returns the project with its generated content so clients can poll status.
func (h *ContentHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	project, err := h.service.GetProject(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get project", h.logger, zap.String("project_id", projectID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusOK, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DeleteProject handles DELETE /content/projects/{pid}.
func (h *ContentHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.DeleteProject(r.Context(), projectID); err != nil {
		writeServiceError(w, r, err, "Failed to delete project", h.logger, zap.String("project_id", projectID.String()))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Regenerate handles POST /content/projects/{pid}/regenerate.
// The body is optional and may override content_types and tone.
func (h *ContentHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req services.RegenerateRequest
	if !decodeOptionalJSON(w, r, maxGenerateBody, &req, h.logger) {
		return
	}

	project, err := h.service.Regenerate(r.Context(), projectID, req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to regenerate project", h.logger, zap.String("project_id", projectID.String()))
		return
	}

	resp := GenerationAccepted{
		ProjectID: project.ID.String(),
		Status:    project.Status,
		Message:   "Content regeneration started",
	}
	if err := WriteJSON(w, http.StatusAccepted, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListContent handles GET /content/projects/{pid}/content.
func (h *ContentHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	content, err := h.service.ListContent(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list content", h.logger, zap.String("project_id", projectID.String()))
		return
	}

	resp := ContentListResponse{ProjectID: projectID.String(), Content: content}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateContent handles PATCH /content/items/{cid}.
func (h *ContentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	contentID, ok := ParseContentID(w, r, h.logger)
	if !ok {
		return
	}

	var req services.UpdateContentRequest
	if !decodeJSON(w, r, maxGenerateBody, &req, h.logger) {
		return
	}

	content, err := h.service.UpdateContent(r.Context(), contentID, req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update content", h.logger, zap.String("content_id", contentID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusOK, content); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Platforms handles GET /content/platforms.
func (h *ContentHandler) Platforms(w http.ResponseWriter, r *http.Request) {
	specs := models.Platforms()
	resp := PlatformsResponse{Platforms: make([]PlatformInfo, len(specs))}
	for i, spec := range specs {
		resp.Platforms[i] = PlatformInfo{PlatformSpec: spec, ToneSuggestions: spec.ToneSuggestions()}
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
