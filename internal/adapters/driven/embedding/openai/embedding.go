// Package openai provides an embedding service adapter for OpenAI-compatible
// /embeddings endpoints.
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

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values. DefaultDimensions matches the knowledge
// base vector column.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "text-embedding-3-small"
	DefaultDimensions = 768
	DefaultTimeout    = 30 * time.Second
)

const (
	providerName = "openai-embedding"
	maxErrorBody = 512
)

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible gateways.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Dimensions is the requested vector size (default: 768).
	Dimensions int

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// EmbeddingService generates embeddings using an OpenAI-compatible API.
// The task type is ignored; documents and queries share one model.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrEmbeddingUnavailable)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates a vector embedding for text. A vector whose length differs
// from the configured dimensions is rejected as malformed.
func (s *EmbeddingService) Embed(ctx context.Context, text string, _ driven.TaskType) ([]float32, error) {
	vec, err := s.embed(ctx, text)
	if err != nil {
		metrics.RecordProviderRequest(providerName, outcome(err))
		return nil, err
	}
	metrics.RecordProviderRequest(providerName, "ok")
	return vec, nil
}

func (s *EmbeddingService) embed(ctx context.Context, text string) ([]float32, error) {
	jsonBody, err := json.Marshal(embeddingRequest{
		Model:      s.model,
		Input:      []string{text},
		Dimensions: s.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.ProviderError{
			Provider:   providerName,
			Status:     resp.StatusCode,
			RetryAfter: ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       domain.TruncateBody(body, maxErrorBody),
		}
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w: %w", domain.ErrMalformedOutput, err)
	}
	if len(embedResp.Data) == 0 {
		return nil, fmt.Errorf("openai: no embedding returned: %w", domain.ErrMalformedOutput)
	}

	vec := embedResp.Data[0].Embedding
	if len(vec) != s.dimensions {
		return nil, fmt.Errorf("openai: got %d dimensions, want %d: %w", len(vec), s.dimensions, domain.ErrMalformedOutput)
	}
	return vec, nil
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

func outcome(err error) string {
	var perr *domain.ProviderError
	switch {
	case errors.As(err, &perr):
		return fmt.Sprintf("status_%d", perr.Status)
	case errors.Is(err, domain.ErrMalformedOutput):
		return "malformed"
	default:
		return "transport"
	}
}
