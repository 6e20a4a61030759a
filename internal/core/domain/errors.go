package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLLMUnavailable indicates the chat model is not configured.
	// Analysis short-circuits to a configuration message.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Retrieval is skipped on the query path and ingestion is refused.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the provider answered 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrQuotaExceeded indicates the provider answered 402.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrProviderFailure indicates any other non-2xx provider response.
	ErrProviderFailure = errors.New("provider request failed")

	// ErrEmptyCompletion indicates the model returned no content.
	ErrEmptyCompletion = errors.New("empty completion")

	// ErrMalformedOutput indicates a provider body could not be decoded.
	ErrMalformedOutput = errors.New("malformed provider output")
)

// ProviderError describes a non-2xx response from an external model provider.
type ProviderError struct {
	// Provider names the adapter ("gemini", "openai").
	Provider string

	// Status is the HTTP status code.
	Status int

	// RetryAfter is the provider-requested backoff, zero when absent.
	RetryAfter time.Duration

	// Body is a truncated copy of the response body.
	Body string
}

// Error implements error.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Body)
}

// Unwrap maps the status onto a domain sentinel.
func (e *ProviderError) Unwrap() error {
	switch e.Status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusPaymentRequired:
		return ErrQuotaExceeded
	default:
		return ErrProviderFailure
	}
}

// TruncateBody keeps at most n runes of a response body for a ProviderError.
func TruncateBody(body []byte, n int) string {
	r := []rune(string(body))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
