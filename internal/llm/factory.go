package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/socratic/internal/logger"
)

// NewProvider creates a Provider from configuration, wrapped with
// retry and logging middleware. Returns (nil, nil) when no provider is
// configured: callers treat a nil Provider as "static seed only".
func NewProvider(ctx context.Context, cfg Config, log *logger.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "":
		return nil, nil
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// Middleware order: caller -> retry -> logging -> base.
	return WithRetry(WithLogging(base, log), cfg.Retry), nil
}
