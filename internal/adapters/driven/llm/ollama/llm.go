// Package ollama provides a vision model adapter for a local Ollama server.
package ollama

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

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/metrics"
)

// Ensure VisionModel implements the interface.
var _ driven.VisionModel = (*VisionModel)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2-vision"
	DefaultTimeout = 300 * time.Second
)

const (
	providerName = "ollama"
	maxErrorBody = 512
)

// Config holds configuration for the Ollama vision model.
type Config struct {
	// BaseURL is the Ollama server URL (default: http://localhost:11434).
	BaseURL string

	// Model is a vision-capable model (default: llama3.2-vision).
	Model string

	// Timeout is the request timeout (default: 300s). Local models are slow
	// on first load.
	Timeout time.Duration
}

// VisionModel sends an instruction and an image to Ollama's chat API.
type VisionModel struct {
	client  *http.Client
	baseURL string
	model   string
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// NewVisionModel creates a new Ollama vision model. No credentials are
// needed, so construction never fails.
func NewVisionModel(cfg Config) *VisionModel {
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
		model:   cfg.Model,
	}
}

// Complete runs a single non-streaming chat turn.
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
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	user := chatMessage{Role: "user", Content: req.Prompt}
	if req.Image != nil {
		// Ollama takes raw base64 without a data URL prefix.
		user.Images = []string{req.Image.Base64}
	}
	messages = append(messages, user)

	reqBody := chatRequest{
		Model:    m.model,
		Messages: messages,
		Stream:   false,
	}
	if req.MaxTokens > 0 {
		reqBody.Options = map[string]any{"num_predict": req.MaxTokens}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.ProviderError{
			Provider: providerName,
			Status:   resp.StatusCode,
			Body:     domain.TruncateBody(body, maxErrorBody),
		}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w: %w", domain.ErrMalformedOutput, err)
	}
	if chatResp.Error != "" {
		return "", fmt.Errorf("ollama: %s: %w", chatResp.Error, domain.ErrProviderFailure)
	}
	if chatResp.Message.Content == "" {
		return "", fmt.Errorf("ollama: %w", domain.ErrEmptyCompletion)
	}
	return chatResp.Message.Content, nil
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
