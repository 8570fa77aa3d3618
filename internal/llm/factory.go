package llm

import (
	"context"
	"fmt"

	"github.com/nregsmp/nregsreport/internal/config"
)

// New creates the completer of the provider selected in cfg.
func New(ctx context.Context, cfg *config.Config, opts ...ClientOption) (Completer, error) {
	s := Settings{
		Model:       cfg.ResolveModel(),
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.ResolveLLMBaseURL(),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		return NewAnthropicClient(s, opts...)
	case config.ProviderGemini:
		return NewGeminiClient(ctx, s, opts...)
	case config.ProviderOllama:
		return NewOllamaClient(s, opts...), nil
	default:
		return nil, fmt.Errorf("%w %q", config.ErrUnknownProvider, cfg.Provider)
	}
}
