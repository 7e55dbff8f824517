package llm

import (
	"encoding/json"
	"fmt"
	"time"
)

// The error types below are the contract between providers and their
// call sites: RetryWithBackoff decides what to retry from the type
// alone, and the engine treats any error that survives retry as
// collaborator trouble to be absorbed by a static fallback (seed
// question or template reflection), never surfaced to the learner.

// ErrRateLimit indicates the provider rejected the call with a rate
// limit (HTTP 429). Retryable with backoff.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the collaborator returned content that
// does not conform to the requested schema. Retried once, since a
// second sample often parses.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or
// unreachable. Retryable with backoff.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the response was truncated at the
// MaxTokens limit. Not retried: a retry would truncate the same way.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}
