package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/inputcheck"
	"github.com/ekaya-inc/ekaya-content/pkg/providers"
)

// MaxMediaDurationSeconds caps requested video length.
const MaxMediaDurationSeconds = 60

// MediaRequest asks several providers for the same asset so results can be compared.
type MediaRequest struct {
	Prompt    string                 `json:"prompt"`
	Kind      providers.Kind         `json:"kind"`
	Providers []providers.ProviderID `json:"providers"`
	Style     string                 `json:"style"`
	Quality   string                 `json:"quality"`
	Duration  int                    `json:"duration"`
	Platform  string                 `json:"platform"`
}

// CostEstimate is the priced form of a cost-estimate query.
type CostEstimate struct {
	Provider         providers.ProviderID `json:"provider"`
	Kind             providers.Kind       `json:"kind"`
	Quality          string               `json:"quality"`
	DurationSeconds  int                  `json:"duration_seconds,omitempty"`
	EstimatedCostUSD float64              `json:"estimated_cost_usd"`
}

// MediaService exposes direct, synchronous media generation across providers.
type MediaService interface {
	Providers(kind providers.Kind) []providers.ProviderInfo
	// Generate calls every requested provider independently. Individual
	// failures are reported in the result, never as an error.
	Generate(ctx context.Context, req MediaRequest) (*providers.FanOutResult, error)
	EstimateCost(provider providers.ProviderID, kind providers.Kind, quality string, duration int) CostEstimate
}

type mediaService struct {
	dispatcher *providers.Dispatcher
	costs      *CostEstimator
	logger     *zap.Logger
}

// NewMediaService creates a media service.
func NewMediaService(dispatcher *providers.Dispatcher, costs *CostEstimator, logger *zap.Logger) MediaService {
	return &mediaService{
		dispatcher: dispatcher,
		costs:      costs,
		logger:     logger.Named("media-service"),
	}
}

var _ MediaService = (*mediaService)(nil)

func (s *mediaService) Providers(kind providers.Kind) []providers.ProviderInfo {
	infos := s.dispatcher.Registry().Available(kind)
	if infos == nil {
		infos = []providers.ProviderInfo{}
	}
	return infos
}

func (s *mediaService) Generate(ctx context.Context, req MediaRequest) (*providers.FanOutResult, error) {
	if err := validateMediaRequest(&req); err != nil {
		return nil, err
	}

	preq := providers.Request{
		Prompt:          req.Prompt,
		Platform:        req.Platform,
		Style:           req.Style,
		Quality:         req.Quality,
		DurationSeconds: req.Duration,
	}
	result := s.dispatcher.FanOut(ctx, req.Providers, req.Kind, preq)

	for i := range result.Results {
		r := &result.Results[i]
		if !r.Success {
			continue
		}
		duration := req.Duration
		if r.Asset.DurationSeconds > 0 {
			duration = r.Asset.DurationSeconds
		}
		r.EstimatedCostUSD = s.costs.Estimate(r.Provider, r.Kind, assetQuality(r.Asset, req.Quality), duration)
	}

	s.logger.Info("Media fan-out finished",
		zap.String("kind", string(req.Kind)),
		zap.Int("providers", result.Total),
		zap.Int("succeeded", result.SuccessfulCount))
	return &result, nil
}

func (s *mediaService) EstimateCost(provider providers.ProviderID, kind providers.Kind, quality string, duration int) CostEstimate {
	if quality == "" {
		quality = defaultMediaQuality
	}
	return CostEstimate{
		Provider:         provider,
		Kind:             kind,
		Quality:          quality,
		DurationSeconds:  duration,
		EstimatedCostUSD: s.costs.Estimate(provider, kind, quality, duration),
	}
}

func validateMediaRequest(req *MediaRequest) error {
	verr := &ValidationError{}

	req.Prompt = strings.TrimSpace(req.Prompt)
	switch n := utf8.RuneCountInString(req.Prompt); {
	case n == 0:
		verr.add("prompt is required")
	case n > MaxPromptLength:
		verr.add("prompt must be at most %d characters", MaxPromptLength)
	}
	if f := inputcheck.CheckField("prompt", req.Prompt); f != nil {
		verr.add("%s %s", f.Field, f.Reason())
	}

	kind, ok := providers.ParseKind(strings.ToLower(string(req.Kind)))
	if !ok {
		verr.add("kind must be one of text, image, video")
	}
	req.Kind = kind

	if req.Duration < 0 || req.Duration > MaxMediaDurationSeconds {
		verr.add("duration must be between 0 and %d seconds", MaxMediaDurationSeconds)
	}
	if req.Quality == "" {
		req.Quality = defaultMediaQuality
	}
	if req.Style != "" && !providers.IsKnownStyle(req.Style) {
		verr.add("unknown style %q", req.Style)
	}

	return verr.orNil()
}
