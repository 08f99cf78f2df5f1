package providers

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/config"
	"github.com/ekaya-inc/ekaya-content/pkg/llm"
)

// NewRegistryFromConfig registers every provider that has credentials and
// sets the per-kind defaults from the generation settings. A default that
// names an unconfigured provider is logged and ignored.
func NewRegistryFromConfig(cfg *config.Config, logger *zap.Logger) (*Registry, error) {
	reg := NewRegistry()
	p := cfg.Providers

	register := func(a Adapter, pc config.ProviderConfig) error {
		if err := reg.Register(a, RegisterOptions{RequestsPerMinute: pc.RequestsPerMinute}); err != nil {
			return err
		}
		logger.Info("Registered provider",
			zap.String("provider", string(a.ID())),
			zap.Any("kinds", a.Kinds()))
		return nil
	}

	if p.OpenAI.IsConfigured() {
		client, err := llm.NewClient(&llm.Config{
			Endpoint:   p.OpenAI.BaseURL,
			Model:      p.OpenAI.Model,
			ImageModel: p.OpenAIImageModel,
			APIKey:     p.OpenAI.APIKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		if err := register(NewOpenAIAdapter(client, client), p.OpenAI); err != nil {
			return nil, err
		}
	}

	if p.Anthropic.IsConfigured() {
		client, err := llm.NewAnthropicClient(&llm.Config{
			Endpoint: p.Anthropic.BaseURL,
			Model:    p.Anthropic.Model,
			APIKey:   p.Anthropic.APIKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("anthropic client: %w", err)
		}
		if err := register(NewAnthropicAdapter(client), p.Anthropic); err != nil {
			return nil, err
		}
	}

	httpCfg := func(pc config.ProviderConfig) HTTPAdapterConfig {
		return HTTPAdapterConfig{
			APIKey:  pc.APIKey,
			BaseURL: pc.BaseURL,
			Model:   pc.Model,
			Poller:  Poller{MaxAttempts: pc.MaxPollAttempts, Interval: pc.PollInterval},
		}
	}

	if p.Stability.IsConfigured() {
		if err := register(NewStabilityAdapter(httpCfg(p.Stability), logger), p.Stability); err != nil {
			return nil, err
		}
	}
	if p.Runway.IsConfigured() {
		if err := register(NewRunwayAdapter(httpCfg(p.Runway), logger), p.Runway); err != nil {
			return nil, err
		}
	}
	if p.Leonardo.IsConfigured() {
		if err := register(NewLeonardoAdapter(httpCfg(p.Leonardo), logger), p.Leonardo); err != nil {
			return nil, err
		}
	}
	if p.Veo.IsConfigured() {
		if err := register(NewVeoAdapter(httpCfg(p.Veo), logger), p.Veo); err != nil {
			return nil, err
		}
	}
	if p.MockEnabled {
		if err := register(NewMockAdapter(), config.ProviderConfig{}); err != nil {
			return nil, err
		}
	}

	for kind, name := range map[Kind]string{
		KindText:  cfg.Generation.TextProvider,
		KindImage: cfg.Generation.ImageProvider,
		KindVideo: cfg.Generation.VideoProvider,
	} {
		if name == "" {
			continue
		}
		if err := reg.SetDefault(kind, ProviderID(name)); err != nil {
			logger.Warn("Default provider unavailable, falling back",
				zap.String("kind", string(kind)),
				zap.String("provider", name),
				zap.Error(err))
		}
	}

	return reg, nil
}
