package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-content/pkg/providers"
	"github.com/ekaya-inc/ekaya-content/pkg/ratelimit"
	"github.com/ekaya-inc/ekaya-content/pkg/services"
)

const maxMediaBody = 16 << 10

// ProvidersResponse lists configured providers.
type ProvidersResponse struct {
	Providers []providers.ProviderInfo `json:"providers"`
}

// StylesResponse lists style templates.
type StylesResponse struct {
	Styles []providers.StyleInfo `json:"styles"`
}

// QualityPresetsResponse lists quality presets.
type QualityPresetsResponse struct {
	QualityPresets []providers.QualityPresetInfo `json:"quality_presets"`
}

// mediaGenerateBody accepts loosely typed scalars from form-style clients.
type mediaGenerateBody struct {
	Prompt    string          `json:"prompt"`
	Kind      string          `json:"kind"`
	Providers []string        `json:"providers"`
	Style     json.RawMessage `json:"style"`
	Quality   json.RawMessage `json:"quality"`
	Duration  json.RawMessage `json:"duration"`
	Platform  string          `json:"platform"`
}

// MediaHandler serves direct multi-provider media generation.
type MediaHandler struct {
	service services.MediaService
	logger  *zap.Logger
}

// NewMediaHandler creates a media handler.
func NewMediaHandler(service services.MediaService, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{service: service, logger: logger}
}

// RegisterRoutes registers the media routes on the given mux.
func (h *MediaHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.HandleFunc("GET /media/providers", g.withoutDB(ratelimit.ScopeAPIGeneral, h.Providers))
	mux.HandleFunc("GET /media/styles", g.withoutDB(ratelimit.ScopeAPIGeneral, h.Styles))
	mux.HandleFunc("GET /media/quality-presets", g.withoutDB(ratelimit.ScopeAPIGeneral, h.QualityPresets))
	mux.HandleFunc("GET /media/cost-estimate", g.withoutDB(ratelimit.ScopeAPIGeneral, h.CostEstimate))
	mux.HandleFunc("POST /media/generate", g.withoutDB(ratelimit.ScopeAPIMedia, h.Generate))
}

// Providers handles GET /media/providers?kind=.
func (h *MediaHandler) Providers(w http.ResponseWriter, r *http.Request) {
	var kind providers.Kind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, ok := providers.ParseKind(strings.ToLower(raw))
		if !ok {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_kind", "kind must be one of text, image, video"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		kind = k
	}

	resp := ProvidersResponse{Providers: h.service.Providers(kind)}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Styles handles GET /media/styles?provider=.
func (h *MediaHandler) Styles(w http.ResponseWriter, r *http.Request) {
	provider := providers.ProviderID(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("provider"))))
	if err := WriteJSON(w, http.StatusOK, StylesResponse{Styles: providers.Styles(provider)}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// QualityPresets handles GET /media/quality-presets.
func (h *MediaHandler) QualityPresets(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, QualityPresetsResponse{QualityPresets: providers.QualityPresets()}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// CostEstimate handles GET /media/cost-estimate?provider=&kind=&quality=&duration=.
func (h *MediaHandler) CostEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	provider := strings.ToLower(strings.TrimSpace(q.Get("provider")))
	if provider == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_provider", "provider is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	kind, ok := providers.ParseKind(strings.ToLower(q.Get("kind")))
	if !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_kind", "kind must be one of text, image, video"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	duration, ok := queryInt(w, r, "duration", 0, h.logger)
	if !ok {
		return
	}

	est := h.service.EstimateCost(providers.ProviderID(provider), kind, q.Get("quality"), duration)
	if err := WriteJSON(w, http.StatusOK, est); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Generate handles POST /media/generate.
// Calls each requested provider and returns every individual result.
func (h *MediaHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var body mediaGenerateBody
	if !decodeJSON(w, r, maxMediaBody, &body, h.logger) {
		return
	}

	duration, _, err := jsonutil.FlexibleInt(body.Duration)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_duration", "duration must be an integer number of seconds"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	req := services.MediaRequest{
		Prompt:   body.Prompt,
		Kind:     providers.Kind(body.Kind),
		Style:    jsonutil.FlexibleStringValue(body.Style),
		Quality:  jsonutil.FlexibleStringValue(body.Quality),
		Duration: duration,
		Platform: body.Platform,
	}
	for _, p := range body.Providers {
		req.Providers = append(req.Providers, providers.ProviderID(strings.ToLower(strings.TrimSpace(p))))
	}

	result, err := h.service.Generate(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to generate media", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
