// Package llm provides chat-completion and image clients for OpenAI-compatible
// endpoints and Anthropic.
package llm

import (
	"context"
)

// LLMClient defines the interface for text generation.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, req TextRequest) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// ImageClient generates images from a prompt.
type ImageClient interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

// TextRequest is a single-turn chat completion.
type TextRequest struct {
	Prompt        string
	SystemMessage string
	Temperature   float64
	MaxTokens     int
}

// GenerateResponseResult holds the completion and token usage.
type GenerateResponseResult struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ImageRequest describes one image generation.
type ImageRequest struct {
	Prompt  string
	Size    string // e.g. "1024x1024"
	Quality string // "standard" or "hd"
	Style   string // "vivid" or "natural"
}

// ImageResult is a generated image.
type ImageResult struct {
	URL           string
	RevisedPrompt string
	Model         string
}

var (
	_ LLMClient   = (*Client)(nil)
	_ ImageClient = (*Client)(nil)
	_ LLMClient   = (*AnthropicClient)(nil)
)
