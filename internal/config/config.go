// Package config loads the medlens configuration once at process start.
//
// Values come from three layers, later layers winning:
//
//  1. Built-in defaults (Default)
//  2. A TOML file, ~/.medlens/config.toml unless a path is given
//  3. Environment variables, including a .env file in the working directory
//
// The resulting *Config is passed by reference to every component that needs it;
// no other package reads the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMemory   = "memory"
)

// Embedding providers.
const (
	EmbeddingGemini = "gemini"
	EmbeddingOpenAI = "openai"
	EmbeddingOllama = "ollama"
)

// Vision chat providers.
const (
	ChatOpenAI    = "openai"
	ChatAnthropic = "anthropic"
	ChatOllama    = "ollama"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Gemini    GeminiConfig    `toml:"gemini"`
	Chat      ChatConfig      `toml:"chat"`
	Storage   StorageConfig   `toml:"storage"`
	Redis     RedisConfig     `toml:"redis"`
	Ingest    IngestConfig    `toml:"ingest"`
	Search    SearchConfig    `toml:"search"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr                  string `toml:"addr"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	IngestTimeoutSeconds  int    `toml:"ingest_timeout_seconds"`
	MaxBodyBytes          int64  `toml:"max_body_bytes"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider string                `toml:"provider"`
	OpenAI   OpenAIEmbeddingConfig `toml:"openai"`
	Ollama   OllamaConfig          `toml:"ollama"`
}

// OpenAIEmbeddingConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIEmbeddingConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Dimensions     int    `toml:"dimensions"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// OllamaConfig points at a local Ollama server.
type OllamaConfig struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// AnthropicConfig configures the Anthropic Messages API.
type AnthropicConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// GeminiConfig configures the default embedding provider.
type GeminiConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ChatConfig configures the vision chat provider. The top-level connection
// fields belong to the OpenAI-compatible provider.
type ChatConfig struct {
	Provider              string          `toml:"provider"`
	Anthropic             AnthropicConfig `toml:"anthropic"`
	Ollama                OllamaConfig    `toml:"ollama"`
	APIKey                string          `toml:"api_key"`
	BaseURL               string          `toml:"base_url"`
	Model                 string          `toml:"model"`
	TimeoutSeconds        int             `toml:"timeout_seconds"`
	ClassifierMaxTokens   int             `toml:"classifier_max_tokens"`
	SynthesisMaxTokens    int             `toml:"synthesis_max_tokens"`
	ClassifierTimeoutSecs int             `toml:"classifier_timeout_seconds"`
}

// StorageConfig selects and configures the knowledge store.
type StorageConfig struct {
	Driver      string `toml:"driver"`
	PostgresDSN string `toml:"postgres_dsn"`
	SQLiteDir   string `toml:"sqlite_dir"`
}

// RedisConfig configures the optional embedding cache. Empty Addr disables it.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// IngestConfig configures chunking and embedding throughput.
type IngestConfig struct {
	ChunkSize         int     `toml:"chunk_size"`
	ChunkOverlap      int     `toml:"chunk_overlap"`
	Workers           int     `toml:"workers"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// SearchConfig configures hybrid ranking and retrieval gating.
type SearchConfig struct {
	MatchCount          int     `toml:"match_count"`
	VectorWeight        float64 `toml:"vector_weight"`
	TextWeight          float64 `toml:"text_weight"`
	MinQueryTextLength  int     `toml:"min_query_text_length"`
	RetrievalTimeoutSec int     `toml:"retrieval_timeout_seconds"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                  ":8080",
			RequestTimeoutSeconds: 120,
			IngestTimeoutSeconds:  30 * 60,
			MaxBodyBytes:          25 << 20,
		},
		Embedding: EmbeddingConfig{
			Provider: EmbeddingGemini,
			OpenAI: OpenAIEmbeddingConfig{
				BaseURL:        "https://api.openai.com/v1",
				Model:          "text-embedding-3-small",
				Dimensions:     768,
				TimeoutSeconds: 30,
			},
			Ollama: OllamaConfig{
				BaseURL:        "http://localhost:11434",
				Model:          "nomic-embed-text",
				TimeoutSeconds: 30,
			},
		},
		Gemini: GeminiConfig{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
			Model:          "text-embedding-004",
			TimeoutSeconds: 30,
		},
		Chat: ChatConfig{
			Provider: ChatOpenAI,
			Anthropic: AnthropicConfig{
				BaseURL:        "https://api.anthropic.com",
				Model:          "claude-sonnet-4-5",
				TimeoutSeconds: 120,
			},
			Ollama: OllamaConfig{
				BaseURL:        "http://localhost:11434",
				Model:          "llama3.2-vision",
				TimeoutSeconds: 300,
			},
			BaseURL:               "https://ai.gateway.lovable.dev/v1",
			Model:                 "google/gemini-2.5-flash",
			TimeoutSeconds:        90,
			ClassifierMaxTokens:   1024,
			SynthesisMaxTokens:    2048,
			ClassifierTimeoutSecs: 45,
		},
		Storage: StorageConfig{
			Driver: StorageSQLite,
		},
		Redis: RedisConfig{
			TTLSeconds: 24 * 60 * 60,
		},
		Ingest: IngestConfig{
			ChunkSize:         1000,
			ChunkOverlap:      200,
			Workers:           4,
			RequestsPerSecond: 10,
			Burst:             1,
		},
		Search: SearchConfig{
			MatchCount:          10,
			VectorWeight:        0.7,
			TextWeight:          0.3,
			MinQueryTextLength:  10,
			RetrievalTimeoutSec: 20,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// DefaultPath returns ~/.medlens/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".medlens", "config.toml"), nil
}

// Load builds the configuration from defaults, the TOML file at path and the environment.
// An empty path means DefaultPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Embedding.Provider = getEnv("EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.Embedding.OpenAI.APIKey)
	c.Embedding.Ollama.BaseURL = getEnv("OLLAMA_HOST", c.Embedding.Ollama.BaseURL)
	c.Gemini.APIKey = getEnv("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Chat.APIKey = getEnv("CHAT_API_KEY", getEnv("LOVABLE_API_KEY", c.Chat.APIKey))
	c.Chat.BaseURL = getEnv("CHAT_BASE_URL", c.Chat.BaseURL)
	c.Chat.Model = getEnv("CHAT_MODEL", c.Chat.Model)
	c.Chat.Provider = getEnv("CHAT_PROVIDER", c.Chat.Provider)
	c.Chat.Anthropic.APIKey = getEnv("ANTHROPIC_API_KEY", c.Chat.Anthropic.APIKey)
	c.Chat.Ollama.BaseURL = getEnv("OLLAMA_HOST", c.Chat.Ollama.BaseURL)

	c.Server.Addr = getEnv("MEDLENS_ADDR", c.Server.Addr)
	c.Storage.Driver = getEnv("MEDLENS_STORAGE", c.Storage.Driver)
	c.Storage.PostgresDSN = getEnv("DATABASE_URL", c.Storage.PostgresDSN)
	c.Storage.SQLiteDir = getEnv("MEDLENS_DATA_DIR", c.Storage.SQLiteDir)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Ingest.Workers = getEnvInt("MEDLENS_INGEST_WORKERS", c.Ingest.Workers)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Pretty = getEnvBool("LOG_PRETTY", c.Log.Pretty)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("config: storage.postgres_dsn (DATABASE_URL) is required for the postgres driver")
		}
	case StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Embedding.Provider {
	case EmbeddingGemini, EmbeddingOpenAI, EmbeddingOllama:
	default:
		return fmt.Errorf("config: unknown embedding provider %q", c.Embedding.Provider)
	}

	switch c.Chat.Provider {
	case ChatOpenAI, ChatAnthropic, ChatOllama:
	default:
		return fmt.Errorf("config: unknown chat provider %q", c.Chat.Provider)
	}

	if c.Ingest.ChunkSize <= 0 {
		return errors.New("config: ingest.chunk_size must be positive")
	}
	if c.Ingest.ChunkOverlap < 0 {
		return errors.New("config: ingest.chunk_overlap must not be negative")
	}
	if c.Ingest.Workers <= 0 {
		return errors.New("config: ingest.workers must be positive")
	}
	if c.Ingest.RequestsPerSecond <= 0 {
		return errors.New("config: ingest.requests_per_second must be positive")
	}
	if c.Search.MatchCount <= 0 {
		return errors.New("config: search.match_count must be positive")
	}
	return nil
}

// RequestTimeout returns the per-request HTTP timeout for analysis.
func (c *Config) RequestTimeout() time.Duration {
	return seconds(c.Server.RequestTimeoutSeconds)
}

// IngestTimeout returns the per-request HTTP timeout for ingestion.
func (c *Config) IngestTimeout() time.Duration {
	return seconds(c.Server.IngestTimeoutSeconds)
}

// RetrievalTimeout bounds embedding + hybrid search on the query path.
func (c *Config) RetrievalTimeout() time.Duration {
	return seconds(c.Search.RetrievalTimeoutSec)
}

// ClassifierTimeout bounds report classification.
func (c *Config) ClassifierTimeout() time.Duration {
	return seconds(c.Chat.ClassifierTimeoutSecs)
}

// OpenAIEmbeddingTimeout bounds a single OpenAI embedding request.
func (c *Config) OpenAIEmbeddingTimeout() time.Duration {
	return seconds(c.Embedding.OpenAI.TimeoutSeconds)
}

// OllamaEmbeddingTimeout bounds a single Ollama embedding request.
func (c *Config) OllamaEmbeddingTimeout() time.Duration {
	return seconds(c.Embedding.Ollama.TimeoutSeconds)
}

// AnthropicTimeout bounds a single Anthropic Messages request.
func (c *Config) AnthropicTimeout() time.Duration {
	return seconds(c.Chat.Anthropic.TimeoutSeconds)
}

// OllamaChatTimeout bounds a single Ollama chat request.
func (c *Config) OllamaChatTimeout() time.Duration {
	return seconds(c.Chat.Ollama.TimeoutSeconds)
}

// GeminiTimeout bounds a single embedding request.
func (c *Config) GeminiTimeout() time.Duration {
	return seconds(c.Gemini.TimeoutSeconds)
}

// ChatTimeout bounds a single chat completion request.
func (c *Config) ChatTimeout() time.Duration {
	return seconds(c.Chat.TimeoutSeconds)
}

// CacheTTL is the embedding cache expiry.
func (c *Config) CacheTTL() time.Duration {
	return seconds(c.Redis.TTLSeconds)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
