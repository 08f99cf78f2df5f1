// Package providers adapts AI generation backends (text, image, video) to a
// single Adapter interface and dispatches calls to them with per-provider
// throttling, circuit breaking and fault isolation.
package providers

import (
	"context"
	"slices"
)

// Kind is the kind of asset a provider produces.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	switch k {
	case KindText, KindImage, KindVideo:
		return k, true
	}
	return "", false
}

// ProviderID identifies a registered provider.
type ProviderID string

const (
	ProviderOpenAI     ProviderID = "openai"
	ProviderAnthropic  ProviderID = "anthropic"
	ProviderStability  ProviderID = "stability"
	ProviderRunway     ProviderID = "runway"
	ProviderLeonardo   ProviderID = "leonardo"
	ProviderGoogleVeo  ProviderID = "google_veo"
	ProviderMidjourney ProviderID = "midjourney"
	ProviderMock       ProviderID = "mock"
)

// Request is a provider-neutral generation request.
type Request struct {
	Prompt       string
	SystemPrompt string
	Platform     string
	Tone         string
	// Style names a style template (photorealistic, artistic, minimalist, cinematic).
	Style string
	// Quality names a quality preset (draft, standard, premium, professional, hd).
	Quality     string
	AspectRatio string
	// DurationSeconds applies to video.
	DurationSeconds int
	// MaxLength bounds generated text in characters.
	MaxLength int
}

// Asset is a generated artifact.
type Asset struct {
	URL             string            `json:"url,omitempty"`
	Text            string            `json:"text,omitempty"`
	MIMEType        string            `json:"mime_type,omitempty"`
	Model           string            `json:"model"`
	PromptUsed      string            `json:"prompt_used,omitempty"`
	DurationSeconds int               `json:"duration_seconds,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Result is the outcome of one provider call. It never carries a Go error
// value; failures are described by Error.
type Result struct {
	Success  bool       `json:"success"`
	Provider ProviderID `json:"provider"`
	Kind     Kind       `json:"kind"`
	Asset    *Asset     `json:"asset,omitempty"`
	Error    *Error     `json:"error,omitempty"`
	// Pending is true when the provider accepted the job but did not finish
	// within the polling budget.
	Pending bool `json:"pending"`
	// EstimatedCostUSD is filled in by callers that price results.
	EstimatedCostUSD float64 `json:"estimated_cost_usd,omitempty"`
}

// FanOutResult aggregates independent calls to several providers.
type FanOutResult struct {
	Success         bool     `json:"success"`
	Kind            Kind     `json:"kind"`
	Results         []Result `json:"results"`
	SuccessfulCount int      `json:"successful_count"`
	Total           int      `json:"total_providers"`
}

// Adapter is implemented by every generation backend.
type Adapter interface {
	ID() ProviderID
	Name() string
	Kinds() []Kind
	Generate(ctx context.Context, kind Kind, req Request) (*Asset, error)
}

// Supports reports whether an adapter declares the kind.
func Supports(a Adapter, kind Kind) bool {
	return slices.Contains(a.Kinds(), kind)
}
