package providers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// VeoAdapter generates video with Google Veo through the Gemini API
// long-running operation endpoints.
type VeoAdapter struct {
	client *jsonClient
	model  string
	poller Poller
}

// NewVeoAdapter creates a Google Veo adapter.
func NewVeoAdapter(cfg HTTPAdapterConfig, logger *zap.Logger) *VeoAdapter {
	p := cfg.Poller
	p.Provider = ProviderGoogleVeo
	return &VeoAdapter{
		client: newJSONClient(ProviderGoogleVeo, cfg.BaseURL,
			map[string]string{"x-goog-api-key": cfg.APIKey}, cfg.HTTPClient, logger),
		model:  cfg.Model,
		poller: p,
	}
}

func (a *VeoAdapter) ID() ProviderID { return ProviderGoogleVeo }
func (a *VeoAdapter) Name() string   { return "Google Veo" }
func (a *VeoAdapter) Kinds() []Kind  { return []Kind{KindVideo} }

type veoRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type veoInstance struct {
	Prompt string `json:"prompt"`
}

type veoParameters struct {
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	AspectRatio     string `json:"aspectRatio,omitempty"`
}

type veoOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// veoDuration clamps to the 5-8 second range Veo accepts.
func veoDuration(secs int) int {
	return min(max(secs, 5), 8)
}

func (a *VeoAdapter) Generate(ctx context.Context, kind Kind, req Request) (*Asset, error) {
	if kind != KindVideo {
		return nil, NewError(ErrorKindUnsupportedKind, ProviderGoogleVeo, fmt.Sprintf("Google Veo does not generate %s", kind), nil)
	}

	aspect := "16:9"
	if req.AspectRatio == "9:16" {
		aspect = "9:16"
	}
	duration := veoDuration(req.DurationSeconds)

	body := veoRequest{
		Instances:  []veoInstance{{Prompt: req.Prompt}},
		Parameters: veoParameters{DurationSeconds: duration, AspectRatio: aspect},
	}

	var op veoOperation
	if err := a.client.submit(ctx, []string{"models", a.model + ":predictLongRunning"}, body, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, NewError(ErrorKindRejected, ProviderGoogleVeo, "no operation name returned", nil)
	}

	asset, err := a.poller.Poll(ctx, func(ctx context.Context) PollOutcome {
		var status veoOperation
		if err := a.client.get(ctx, strings.Split(op.Name, "/"), &status); err != nil {
			if pe := Classify(ProviderGoogleVeo, err); !pe.Retryable {
				return PollFailed(pe)
			}
			return PollOutcome{State: PollStatePending, Err: err}
		}
		if !status.Done {
			return PollPending()
		}
		if status.Error != nil {
			return PollFailed(NewError(ErrorKindRejected, ProviderGoogleVeo,
				fmt.Sprintf("operation failed (%d): %s", status.Error.Code, status.Error.Message), nil))
		}
		samples := status.Response.GenerateVideoResponse.GeneratedSamples
		if len(samples) == 0 || samples[0].Video.URI == "" {
			return PollFailed(NewError(ErrorKindRejected, ProviderGoogleVeo, "operation finished without video", nil))
		}
		return PollDone(&Asset{URL: samples[0].Video.URI})
	})
	if err != nil {
		return nil, err
	}

	asset.MIMEType = "video/mp4"
	asset.Model = a.model
	asset.PromptUsed = req.Prompt
	asset.DurationSeconds = duration
	asset.Metadata = map[string]string{"operation": op.Name, "aspect_ratio": aspect}
	return asset, nil
}

var _ Adapter = (*VeoAdapter)(nil)
