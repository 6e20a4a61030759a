// Package anthropic provides a vision model adapter for the Anthropic Messages API.
package anthropic

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
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-sonnet-4-5"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
	providerName     = "anthropic"
	maxErrorBody     = 512
)

// Config holds configuration for the Anthropic vision model.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the model to use (default: claude-sonnet-4-5).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// VisionModel sends an instruction and an image to the Messages API.
type VisionModel struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type messagesRequest struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewVisionModel creates a new Anthropic vision model.
func NewVisionModel(cfg Config) (*VisionModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required: %w", domain.ErrLLMUnavailable)
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
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Complete sends one user turn holding the image block (when present)
// followed by the prompt text.
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
	blocks := make([]contentBlock, 0, 2)
	if req.Image != nil {
		blocks = append(blocks, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: req.Image.MediaType,
				Data:      req.Image.Base64,
			},
		})
	}
	blocks = append(blocks, contentBlock{Type: "text", Text: req.Prompt})

	// max_tokens is mandatory for this API.
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	jsonBody, err := json.Marshal(messagesRequest{
		Model:     m.model,
		Messages:  []message{{Role: "user", Content: blocks}},
		MaxTokens: maxTokens,
		System:    req.System,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", m.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("anthropic: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.ProviderError{
			Provider:   providerName,
			Status:     resp.StatusCode,
			RetryAfter: ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       domain.TruncateBody(body, maxErrorBody),
		}
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w: %w", domain.ErrMalformedOutput, err)
	}
	if msgResp.Error != nil {
		return "", fmt.Errorf("anthropic: %s: %w", msgResp.Error.Message, domain.ErrProviderFailure)
	}

	var text strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic: %w", domain.ErrEmptyCompletion)
	}
	return text.String(), nil
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
