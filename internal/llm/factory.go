package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/quizgen/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped with event
// logging. Each Generate call maps to one upstream request; nothing retries.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, logger *zap.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return WithLogging(base, cfg.Provider, eventRepo, logger), nil
}
