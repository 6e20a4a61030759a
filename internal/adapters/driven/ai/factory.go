// Package ai provides factory functions for creating provider and storage adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/medlens/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/medlens/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/medlens/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/medlens/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/medlens/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/medlens/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/medlens/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/medlens/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/medlens/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/medlens/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/medlens/internal/config"
	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the adapters built from configuration.
type InitResult struct {
	// EmbeddingService is nil when no embedding key is configured.
	EmbeddingService driven.EmbeddingService

	// VisionModel is nil when no chat key is configured.
	VisionModel driven.VisionModel

	Store driven.KnowledgeBase

	Warnings []string // Non-fatal issues that disabled a capability.

	closers []func()
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// Init builds every adapter. Missing provider credentials are warnings;
// a store that cannot be opened is an error.
func Init(ctx context.Context, cfg *config.Config) (*InitResult, error) {
	result := &InitResult{}

	store, closeStore, err := CreateStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	result.Store = store
	result.closers = append(result.closers, closeStore)

	embedder, err := CreateEmbeddingService(cfg)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	} else {
		rdb, warn := CreateRedisClient(ctx, cfg)
		if warn != "" {
			result.Warnings = append(result.Warnings, warn)
		}
		if rdb != nil {
			result.closers = append(result.closers, func() { _ = rdb.Close() })
			embedder = cache.New(embedder, rdb, cache.Config{TTL: cfg.CacheTTL()})
		}
		result.EmbeddingService = embedder
	}

	model, err := CreateVisionModel(cfg)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	} else {
		result.VisionModel = model
	}

	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}
	return result, nil
}

// CreateEmbeddingService creates the embedding service selected by
// embedding.provider. It returns an error wrapping
// domain.ErrEmbeddingUnavailable when the provider's key is not set.
func CreateEmbeddingService(cfg *config.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case config.EmbeddingOllama:
		oc := cfg.Embedding.Ollama
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: oc.BaseURL,
			Model:   oc.Model,
			Timeout: cfg.OllamaEmbeddingTimeout(),
		}), nil

	case config.EmbeddingOpenAI:
		oc := cfg.Embedding.OpenAI
		if oc.APIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", domain.ErrEmbeddingUnavailable)
		}
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     oc.APIKey,
			BaseURL:    oc.BaseURL,
			Model:      oc.Model,
			Dimensions: oc.Dimensions,
			Timeout:    cfg.OpenAIEmbeddingTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	}

	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY not set", domain.ErrEmbeddingUnavailable)
	}
	svc, err := gemini.NewEmbeddingService(gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.GeminiTimeout(),
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// CreateVisionModel creates the vision chat model selected by chat.provider.
// It returns an error wrapping domain.ErrLLMUnavailable when the provider's
// key is not set.
func CreateVisionModel(cfg *config.Config) (driven.VisionModel, error) {
	switch cfg.Chat.Provider {
	case config.ChatOllama:
		oc := cfg.Chat.Ollama
		return ollama.NewVisionModel(ollama.Config{
			BaseURL: oc.BaseURL,
			Model:   oc.Model,
			Timeout: cfg.OllamaChatTimeout(),
		}), nil

	case config.ChatAnthropic:
		ac := cfg.Chat.Anthropic
		if ac.APIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY not set", domain.ErrLLMUnavailable)
		}
		model, err := anthropic.NewVisionModel(anthropic.Config{
			APIKey:  ac.APIKey,
			BaseURL: ac.BaseURL,
			Model:   ac.Model,
			Timeout: cfg.AnthropicTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return model, nil
	}

	if cfg.Chat.APIKey == "" {
		return nil, fmt.Errorf("%w: CHAT_API_KEY not set", domain.ErrLLMUnavailable)
	}
	model, err := openai.NewVisionModel(openai.Config{
		APIKey:  cfg.Chat.APIKey,
		BaseURL: cfg.Chat.BaseURL,
		Model:   cfg.Chat.Model,
		Timeout: cfg.ChatTimeout(),
	})
	if err != nil {
		return nil, err
	}
	return model, nil
}

// CreateRedisClient connects to the embedding cache. It returns a nil client
// when no address is configured, and a nil client plus a warning when the
// server cannot be reached.
func CreateRedisClient(ctx context.Context, cfg *config.Config) (*goredis.Client, string) {
	if cfg.Redis.Addr == "" {
		return nil, ""
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Sprintf("embedding cache disabled: redis %s unreachable: %v", cfg.Redis.Addr, err)
	}
	return rdb, ""
}

// CreateStore opens the knowledge base selected by storage.driver. The
// returned function closes it.
func CreateStore(ctx context.Context, cfg *config.Config) (driven.KnowledgeBase, func(), error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.Storage.PostgresDSN, postgres.DefaultPoolConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, store.Close, nil

	case config.StorageSQLite:
		store, err := sqlite.NewStore(cfg.Storage.SQLiteDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Debug("SQLite knowledge base at %s", store.Path())
		return store, func() { _ = store.Close() }, nil

	case config.StorageMemory:
		return memory.NewKnowledgeStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}
