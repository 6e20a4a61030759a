// Package cache provides a Redis-backed decorator for embedding services.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultTTL is how long a cached vector is kept.
const DefaultTTL = 24 * time.Hour

// DefaultKeyPrefix namespaces cache keys.
const DefaultKeyPrefix = "medlens:emb:"

// Config holds cache settings.
type Config struct {
	TTL       time.Duration
	KeyPrefix string
}

// EmbeddingService wraps another EmbeddingService with a Redis cache keyed by
// model, task type and text. Redis failures never fail a call; the inner
// service is used instead.
type EmbeddingService struct {
	inner  driven.EmbeddingService
	redis  goredis.Cmdable
	ttl    time.Duration
	prefix string
}

// New creates a caching decorator. A nil redis client disables caching.
func New(inner driven.EmbeddingService, redis goredis.Cmdable, cfg Config) *EmbeddingService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	return &EmbeddingService{
		inner:  inner,
		redis:  redis,
		ttl:    cfg.TTL,
		prefix: cfg.KeyPrefix,
	}
}

// Embed returns a cached vector if present, otherwise delegates and stores
// the result. Failed inner calls are not cached.
func (s *EmbeddingService) Embed(ctx context.Context, text string, task driven.TaskType) ([]float32, error) {
	if s.redis == nil {
		return s.inner.Embed(ctx, text, task)
	}

	key := s.key(text, task)

	data, err := s.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil && len(vec) > 0 {
			logger.Debug("embedding cache hit (%d chars)", len(text))
			return vec, nil
		}
		logger.Warn("discarding corrupt cached embedding %s", key)
		_ = s.redis.Del(ctx, key).Err()
	case !errors.Is(err, goredis.Nil):
		logger.Warn("embedding cache get failed, falling back to provider: %v", err)
	}

	vec, err := s.inner.Embed(ctx, text, task)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(vec)
	if err != nil {
		return vec, nil
	}
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		logger.Warn("embedding cache set failed: %v", err)
	}

	return vec, nil
}

// ModelName returns the inner model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

func (s *EmbeddingService) key(text string, task driven.TaskType) string {
	sum := sha256.Sum256([]byte(s.inner.ModelName() + "\x00" + string(task) + "\x00" + text))
	return s.prefix + hex.EncodeToString(sum[:])
}
