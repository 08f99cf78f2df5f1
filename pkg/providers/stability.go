package providers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// HTTPAdapterConfig configures a REST-based adapter.
type HTTPAdapterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Poller bounds status checks for asynchronous vendors.
	Poller Poller
	// HTTPClient overrides the default client. Used by tests.
	HTTPClient *http.Client
}

// StabilityAdapter generates images with the Stability AI REST API.
type StabilityAdapter struct {
	client *jsonClient
	model  string
}

// NewStabilityAdapter creates a Stability AI adapter.
func NewStabilityAdapter(cfg HTTPAdapterConfig, logger *zap.Logger) *StabilityAdapter {
	return &StabilityAdapter{
		client: newJSONClient(ProviderStability, cfg.BaseURL,
			map[string]string{"Authorization": "Bearer " + cfg.APIKey}, cfg.HTTPClient, logger),
		model: cfg.Model,
	}
}

func (a *StabilityAdapter) ID() ProviderID { return ProviderStability }
func (a *StabilityAdapter) Name() string   { return "Stability AI" }
func (a *StabilityAdapter) Kinds() []Kind  { return []Kind{KindImage} }

type stabilityPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type stabilityRequest struct {
	TextPrompts []stabilityPrompt `json:"text_prompts"`
	CFGScale    float64           `json:"cfg_scale"`
	Height      int               `json:"height"`
	Width       int               `json:"width"`
	Steps       int               `json:"steps"`
	Samples     int               `json:"samples"`
	StylePreset string            `json:"style_preset"`
}

type stabilityResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		Seed         int64  `json:"seed"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
}

func (a *StabilityAdapter) Generate(ctx context.Context, kind Kind, req Request) (*Asset, error) {
	if kind != KindImage {
		return nil, NewError(ErrorKindUnsupportedKind, ProviderStability, fmt.Sprintf("Stability AI does not generate %s", kind), nil)
	}

	prompt := ApplyStyle(ProviderStability, req.Style, req.Prompt)
	preset := LookupQuality(req.Quality)
	size := stabilitySize(req.AspectRatio)
	stylePreset := "enhance"
	if req.Style == StylePhotorealistic {
		stylePreset = "photographic"
	}

	body := stabilityRequest{
		TextPrompts: []stabilityPrompt{{Text: prompt, Weight: 1.0}},
		CFGScale:    preset.Guidance,
		Height:      size.Height,
		Width:       size.Width,
		Steps:       preset.Steps,
		Samples:     1,
		StylePreset: stylePreset,
	}

	var resp stabilityResponse
	if err := a.client.submit(ctx, []string{"v1", "generation", a.model, "text-to-image"}, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Artifacts) == 0 || resp.Artifacts[0].Base64 == "" {
		return nil, NewError(ErrorKindRejected, ProviderStability, "no image generated", nil)
	}
	if reason := resp.Artifacts[0].FinishReason; reason == "CONTENT_FILTERED" {
		return nil, NewError(ErrorKindRejected, ProviderStability, "image blocked by content filter", nil)
	}

	return &Asset{
		URL:        "data:image/png;base64," + resp.Artifacts[0].Base64,
		MIMEType:   "image/png",
		Model:      a.model,
		PromptUsed: prompt,
		Metadata: map[string]string{
			"width":  strconv.Itoa(size.Width),
			"height": strconv.Itoa(size.Height),
			"steps":  strconv.Itoa(preset.Steps),
			"seed":   strconv.FormatInt(resp.Artifacts[0].Seed, 10),
		},
	}, nil
}

var _ Adapter = (*StabilityAdapter)(nil)
