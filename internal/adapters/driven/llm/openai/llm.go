// Package openai provides a vision model adapter for OpenAI-compatible chat completion APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/medlens/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/metrics"
)

// Ensure VisionModel implements the interface.
var _ driven.VisionModel = (*VisionModel)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://ai.gateway.lovable.dev/v1"
	DefaultModel   = "google/gemini-2.5-flash"
	DefaultTimeout = 90 * time.Second
)

const providerName = "openai"

const maxErrorBody = 512

// Config holds configuration for the chat completion gateway.
type Config struct {
	// APIKey is the gateway bearer token (required).
	APIKey string

	// BaseURL is the API base URL (default: https://ai.gateway.lovable.dev/v1).
	// Any OpenAI-compatible endpoint works.
	BaseURL string

	// Model is the model to request (default: google/gemini-2.5-flash).
	Model string

	// Timeout is the request timeout (default: 90s).
	Timeout time.Duration
}

// VisionModel sends an instruction and an image to a chat completion endpoint.
type VisionModel struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// chatCompletionRequest is the /chat/completions request format.
type chatCompletionRequest struct {
	Model     string              `json:"model"`
	Messages  []chatCompletionMsg `json:"messages"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

// chatCompletionMsg carries either a plain string or a list of content parts.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// chatCompletionResponse is the /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewVisionModel creates a new chat completion vision model.
func NewVisionModel(cfg Config) (*VisionModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrLLMUnavailable)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &VisionModel{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Complete sends the system instruction and a user message holding the
// prompt text and, when present, the image as a data URL.
func (m *VisionModel) Complete(ctx context.Context, req driven.CompletionRequest) (string, error) {
	content, err := m.complete(ctx, req)
	if err != nil {
		metrics.RecordProviderRequest(providerName, outcome(err))
		return "", err
	}
	metrics.RecordProviderRequest(providerName, "ok")
	return content, nil
}

func (m *VisionModel) complete(ctx context.Context, req driven.CompletionRequest) (string, error) {
	parts := []contentPart{{Type: "text", Text: req.Prompt}}
	if req.Image != nil {
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: req.Image.DataURL()},
		})
	}

	messages := make([]chatCompletionMsg, 0, 2)
	if req.System != "" {
		messages = append(messages, chatCompletionMsg{Role: "system", Content: req.System})
	}
	messages = append(messages, chatCompletionMsg{Role: "user", Content: parts})

	reqBody := chatCompletionRequest{
		Model:     m.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.ProviderError{
			Provider:   providerName,
			Status:     resp.StatusCode,
			RetryAfter: ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       domain.TruncateBody(body, maxErrorBody),
		}
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("openai: decode response: %w: %w", domain.ErrMalformedOutput, err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("openai: %s: %w", chatResp.Error.Message, domain.ErrProviderFailure)
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: %w", domain.ErrEmptyCompletion)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// ModelName returns the name of the model being used.
func (m *VisionModel) ModelName() string {
	return m.model
}

func outcome(err error) string {
	var perr *domain.ProviderError
	switch {
	case errors.As(err, &perr):
		return fmt.Sprintf("status_%d", perr.Status)
	case errors.Is(err, domain.ErrEmptyCompletion):
		return "empty"
	case errors.Is(err, domain.ErrMalformedOutput):
		return "malformed"
	case errors.Is(err, domain.ErrProviderFailure):
		return "error_body"
	default:
		return "transport"
	}
}
