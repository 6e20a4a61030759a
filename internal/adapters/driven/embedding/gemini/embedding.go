// Package gemini provides an embedding service adapter using the Gemini embedContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/medlens/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/metrics"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "text-embedding-004"
	DefaultTimeout = 30 * time.Second
)

const providerName = "gemini"

// maxErrorBody caps how much of a failed response is kept in errors.
const maxErrorBody = 512

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://generativelanguage.googleapis.com/v1beta).
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-004).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// EmbeddingService generates embeddings using the Gemini API.
type EmbeddingService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

// embedRequest is the embedContent request format.
type embedRequest struct {
	Model    string          `json:"model"`
	Content  content         `json:"content"`
	TaskType driven.TaskType `json:"taskType"`
}

// embedResponse is the embedContent response format.
type embedResponse struct {
	Embedding *struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required: %w", domain.ErrEmbeddingUnavailable)
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

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Embed generates a vector embedding for the given text.
// Any failure returns a nil vector; a 429 is reported as a *domain.ProviderError
// carrying the Retry-After hint.
func (s *EmbeddingService) Embed(ctx context.Context, text string, task driven.TaskType) ([]float32, error) {
	vec, err := s.embed(ctx, text, task)
	if err != nil {
		metrics.RecordProviderRequest(providerName, outcome(err))
		return nil, err
	}
	metrics.RecordProviderRequest(providerName, "ok")
	return vec, nil
}

func (s *EmbeddingService) embed(ctx context.Context, text string, task driven.TaskType) ([]float32, error) {
	reqBody := embedRequest{
		Model:    "models/" + s.model,
		Content:  content{Parts: []part{{Text: text}}},
		TaskType: task,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:embedContent?key=%s",
		s.baseURL, url.PathEscape(s.model), url.QueryEscape(s.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.ProviderError{
			Provider:   providerName,
			Status:     resp.StatusCode,
			RetryAfter: ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       domain.TruncateBody(body, maxErrorBody),
		}
	}

	var embedResp embedResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w: %w", domain.ErrMalformedOutput, err)
	}
	if embedResp.Embedding == nil || len(embedResp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini: no embedding values: %w", domain.ErrMalformedOutput)
	}

	return embedResp.Embedding.Values, nil
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
