// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// VisionModel is a generative model that accepts an instruction and an image.
// This is an optional service - when nil, analysis degrades to canned responses.
//
// Implementations:
//   - OpenAI-compatible chat completions gateway
//   - Anthropic Messages API
//   - Ollama (local)
//   - Scripted fake for tests
type VisionModel interface {
	// Complete returns the model's free-text answer.
	// Non-2xx responses are returned as *domain.ProviderError.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string
}

// CompletionRequest is a single instruction + image exchange.
type CompletionRequest struct {
	// System is the system instruction.
	System string

	// Prompt is the user text accompanying the image.
	Prompt string

	// Image is attached to the user message when non-nil.
	Image *Image

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int
}

// Image is an inline base64 image.
type Image struct {
	// Base64 is the encoded image data without a data URL prefix.
	Base64 string

	// MediaType is the declared media type (e.g. "image/jpeg").
	MediaType string
}

// DataURL renders the image as a data URL.
func (i Image) DataURL() string {
	return "data:" + i.MediaType + ";base64," + i.Base64
}
