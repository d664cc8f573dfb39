package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/config"
)

// NewFromConfig builds the configured provider wrapped with instrumentation.
// The returned closer releases provider resources and is never nil.
func NewFromConfig(ctx context.Context, cfg config.ModelConfig, logger *slog.Logger) (Model, io.Closer, error) {
	switch cfg.Provider {
	case config.ProviderAzure, config.ProviderOpenAI:
		flavor := FlavorAzure
		if cfg.Provider == config.ProviderOpenAI {
			flavor = FlavorOpenAI
		}
		client, err := NewChatClient(ChatConfig{
			Flavor:     flavor,
			Endpoint:   cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Deployment: cfg.DeploymentName,
			APIVersion: cfg.APIVersion,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return Instrument(client, logger), nopCloser{}, nil
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, GeminiConfig{APIKey: cfg.APIKey, ModelName: cfg.DeploymentName})
		if err != nil {
			return nil, nil, err
		}
		return Instrument(client, logger), client, nil
	default:
		return nil, nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
