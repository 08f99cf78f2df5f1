package providers

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/ekaya-content/pkg/llm"
)

const (
	defaultTextTemperature = 0.7
	defaultTextMaxTokens   = 1000
)

// TextAdapter generates text through any llm.LLMClient. It backs both the
// OpenAI and Anthropic providers.
type TextAdapter struct {
	id     ProviderID
	name   string
	client llm.LLMClient
	images llm.ImageClient
}

// NewOpenAIAdapter creates the OpenAI adapter. images may be nil for a text-only setup.
func NewOpenAIAdapter(client llm.LLMClient, images llm.ImageClient) *TextAdapter {
	return &TextAdapter{id: ProviderOpenAI, name: "OpenAI", client: client, images: images}
}

// NewAnthropicAdapter creates the Anthropic adapter.
func NewAnthropicAdapter(client llm.LLMClient) *TextAdapter {
	return &TextAdapter{id: ProviderAnthropic, name: "Anthropic", client: client}
}

func (a *TextAdapter) ID() ProviderID { return a.id }
func (a *TextAdapter) Name() string   { return a.name }

func (a *TextAdapter) Kinds() []Kind {
	if a.images != nil {
		return []Kind{KindText, KindImage}
	}
	return []Kind{KindText}
}

func (a *TextAdapter) Generate(ctx context.Context, kind Kind, req Request) (*Asset, error) {
	switch kind {
	case KindText:
		return a.generateText(ctx, req)
	case KindImage:
		if a.images != nil {
			return a.generateImage(ctx, req)
		}
	}
	return nil, NewError(ErrorKindUnsupportedKind, a.id, fmt.Sprintf("%s does not generate %s", a.name, kind), nil)
}

func (a *TextAdapter) generateText(ctx context.Context, req Request) (*Asset, error) {
	resp, err := a.client.GenerateResponse(ctx, llm.TextRequest{
		Prompt:        req.Prompt,
		SystemMessage: req.SystemPrompt,
		Temperature:   defaultTextTemperature,
		MaxTokens:     defaultTextMaxTokens,
	})
	if err != nil {
		return nil, Classify(a.id, err)
	}
	if resp.Content == "" {
		return nil, NewError(ErrorKindRejected, a.id, "empty completion", nil)
	}
	return &Asset{
		Text:       resp.Content,
		MIMEType:   "text/plain",
		Model:      resp.Model,
		PromptUsed: req.Prompt,
		Metadata: map[string]string{
			"prompt_tokens":     fmt.Sprint(resp.PromptTokens),
			"completion_tokens": fmt.Sprint(resp.CompletionTokens),
		},
	}, nil
}

func (a *TextAdapter) generateImage(ctx context.Context, req Request) (*Asset, error) {
	prompt := ApplyStyle(a.id, req.Style, req.Prompt)
	quality := "hd"
	if req.Quality == "draft" || req.Quality == "standard" {
		quality = "standard"
	}

	img, err := a.images.GenerateImage(ctx, llm.ImageRequest{
		Prompt:  prompt,
		Size:    dalleSize(req.AspectRatio),
		Quality: quality,
		Style:   "vivid",
	})
	if err != nil {
		return nil, Classify(a.id, err)
	}

	asset := &Asset{
		URL:        img.URL,
		MIMEType:   "image/png",
		Model:      img.Model,
		PromptUsed: prompt,
		Metadata:   map[string]string{"quality": quality, "size": dalleSize(req.AspectRatio)},
	}
	if img.RevisedPrompt != "" {
		asset.Metadata["revised_prompt"] = img.RevisedPrompt
	}
	return asset, nil
}

var _ Adapter = (*TextAdapter)(nil)
