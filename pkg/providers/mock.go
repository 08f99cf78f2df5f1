package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
)

// MockAdapter is a deterministic offline provider for local development and tests.
type MockAdapter struct {
	// ProviderID overrides the reported ID so a mock can stand in for a real vendor.
	ProviderID ProviderID
	KindList   []Kind
	// FailWith, when set for a kind, is returned instead of an asset.
	FailWith map[Kind]error
	// GenerateFunc, when set, replaces the default behavior.
	GenerateFunc func(ctx context.Context, kind Kind, req Request) (*Asset, error)

	mu       sync.Mutex
	Calls    int
	Requests []Request
}

// NewMockAdapter creates a mock supporting every kind.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		ProviderID: ProviderMock,
		KindList:   []Kind{KindText, KindImage, KindVideo},
	}
}

func (m *MockAdapter) ID() ProviderID {
	if m.ProviderID == "" {
		return ProviderMock
	}
	return m.ProviderID
}

func (m *MockAdapter) Name() string  { return "Mock (" + string(m.ID()) + ")" }
func (m *MockAdapter) Kinds() []Kind { return m.KindList }

func (m *MockAdapter) Generate(ctx context.Context, kind Kind, req Request) (*Asset, error) {
	m.mu.Lock()
	m.Calls++
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, kind, req)
	}
	if err, ok := m.FailWith[kind]; ok {
		return nil, err
	}
	if !slices.Contains(m.KindList, kind) {
		return nil, NewError(ErrorKindUnsupportedKind, m.ID(), fmt.Sprintf("mock does not generate %s", kind), nil)
	}

	sum := sha256.Sum256([]byte(string(kind) + "|" + req.Platform + "|" + req.Prompt))
	digest := hex.EncodeToString(sum[:8])

	switch kind {
	case KindText:
		return &Asset{
			Text:       fmt.Sprintf("Sample %s post about %s #content #%s", req.Platform, truncate(req.Prompt, 60), digest[:6]),
			MIMEType:   "text/plain",
			Model:      "mock-text",
			PromptUsed: req.Prompt,
		}, nil
	case KindImage:
		return &Asset{
			URL:        "https://mock.invalid/images/" + digest + ".png",
			MIMEType:   "image/png",
			Model:      "mock-image",
			PromptUsed: req.Prompt,
		}, nil
	default:
		return &Asset{
			URL:             "https://mock.invalid/videos/" + digest + ".mp4",
			MIMEType:        "video/mp4",
			Model:           "mock-video",
			PromptUsed:      req.Prompt,
			DurationSeconds: req.DurationSeconds,
		}, nil
	}
}

// CallCount returns the number of Generate calls.
func (m *MockAdapter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ Adapter = (*MockAdapter)(nil)
