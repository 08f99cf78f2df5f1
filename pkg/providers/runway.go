package providers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const runwayMaxDurationSecs = 10

// RunwayAdapter generates video (and stills) with Runway. Jobs are
// asynchronous: a task is submitted, then polled until it finishes.
type RunwayAdapter struct {
	client *jsonClient
	model  string
	poller Poller
}

// NewRunwayAdapter creates a Runway adapter.
func NewRunwayAdapter(cfg HTTPAdapterConfig, logger *zap.Logger) *RunwayAdapter {
	p := cfg.Poller
	p.Provider = ProviderRunway
	return &RunwayAdapter{
		client: newJSONClient(ProviderRunway, cfg.BaseURL,
			map[string]string{"Authorization": "Bearer " + cfg.APIKey}, cfg.HTTPClient, logger),
		model:  cfg.Model,
		poller: p,
	}
}

func (a *RunwayAdapter) ID() ProviderID { return ProviderRunway }
func (a *RunwayAdapter) Name() string   { return "Runway" }
func (a *RunwayAdapter) Kinds() []Kind  { return []Kind{KindVideo, KindImage} }

type runwayRequest struct {
	Prompt    string `json:"prompt"`
	Model     string `json:"model,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Ratio     string `json:"ratio"`
	Watermark bool   `json:"watermark"`
	Output    string `json:"output_type,omitempty"`
}

type runwayTask struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output struct {
		URL string `json:"url"`
	} `json:"output"`
	Error string `json:"error"`
}

func (a *RunwayAdapter) Generate(ctx context.Context, kind Kind, req Request) (*Asset, error) {
	body := runwayRequest{
		Prompt:    req.Prompt,
		Model:     a.model,
		Ratio:     "16:9",
		Watermark: false,
	}
	mime := "video/mp4"
	switch kind {
	case KindVideo:
		body.Duration = min(max(req.DurationSeconds, 1), runwayMaxDurationSecs)
		if req.AspectRatio == "9:16" {
			body.Ratio = "9:16"
		}
	case KindImage:
		body.Output = "image"
		mime = "image/png"
		if req.AspectRatio != "" {
			body.Ratio = req.AspectRatio
		}
	default:
		return nil, NewError(ErrorKindUnsupportedKind, ProviderRunway, fmt.Sprintf("Runway does not generate %s", kind), nil)
	}

	var submitted runwayTask
	if err := a.client.submit(ctx, []string{"v1", "generate"}, body, &submitted); err != nil {
		return nil, err
	}
	if submitted.ID == "" {
		return nil, NewError(ErrorKindRejected, ProviderRunway, "no task id returned", nil)
	}

	asset, err := a.poller.Poll(ctx, func(ctx context.Context) PollOutcome {
		var task runwayTask
		if err := a.client.get(ctx, []string{"v1", "tasks", submitted.ID}, &task); err != nil {
			if pe := Classify(ProviderRunway, err); !pe.Retryable {
				return PollFailed(pe)
			}
			return PollOutcome{State: PollStatePending, Err: err}
		}
		switch strings.ToLower(task.Status) {
		case "completed", "succeeded":
			if task.Output.URL == "" {
				return PollFailed(NewError(ErrorKindRejected, ProviderRunway, "task completed without output", nil))
			}
			return PollDone(&Asset{URL: task.Output.URL})
		case "failed", "cancelled":
			msg := task.Error
			if msg == "" {
				msg = "task " + strings.ToLower(task.Status)
			}
			return PollFailed(NewError(ErrorKindRejected, ProviderRunway, msg, nil))
		}
		return PollPending()
	})
	if err != nil {
		return nil, err
	}

	asset.MIMEType = mime
	asset.Model = a.model
	asset.PromptUsed = req.Prompt
	asset.DurationSeconds = body.Duration
	asset.Metadata = map[string]string{"task_id": submitted.ID, "ratio": body.Ratio}
	return asset, nil
}

var _ Adapter = (*RunwayAdapter)(nil)
