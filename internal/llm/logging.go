package llm

import (
	"context"
	"time"

	"github.com/abhisek/socratic/internal/logger"
)

// loggingProvider is a decorator that logs every generation call with
// its purpose, latency and token usage. Failures are logged at Warn:
// the engine recovers from them with static fallbacks, so they are
// expected operational noise, not errors.
type loggingProvider struct {
	inner Provider
	log   *logger.Logger
}

// WithLogging wraps a Provider with structured request logging.
func WithLogging(p Provider, log *logger.Logger) Provider {
	return &loggingProvider{inner: p, log: log.With("component", "llm")}
}

func (l *loggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)
	latency := time.Since(start)

	if err != nil {
		l.log.Warn("generation failed",
			"purpose", purpose,
			"model", l.inner.ModelID(),
			"latency_ms", latency.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	l.log.Debug("generation ok",
		"purpose", purpose,
		"model", resp.Model,
		"latency_ms", latency.Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return resp, nil
}

func (l *loggingProvider) ModelID() string {
	return l.inner.ModelID()
}
