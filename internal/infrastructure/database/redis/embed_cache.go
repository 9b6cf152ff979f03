package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/derril-tech/ai-patent-explorer/internal/config"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
)

const defaultEmbedTTL = 24 * time.Hour

// commands is the slice of the Redis API the cache uses.  Satisfied by
// *redis.Client and by fakes in tests.
type commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// EmbedCache shares embedding vectors across worker instances.  Cache
// failures are absorbed: a broken cache degrades to miss, never to a failed
// embedding request.
type EmbedCache struct {
	rdb    commands
	prefix string
	ttl    time.Duration
	logger logging.Logger
}

// NewEmbedCache builds a cache using the configured key prefix and TTL.
func NewEmbedCache(rdb commands, cfg config.RedisConfig, log logging.Logger) *EmbedCache {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = defaultEmbedTTL
	}
	return &EmbedCache{
		rdb:    rdb,
		prefix: cfg.KeyPrefix + "embed:",
		ttl:    ttl,
		logger: log.Named("embed_cache"),
	}
}

// GetVector returns the cached vector for key, or (nil, false) on miss or
// cache failure.
func (c *EmbedCache) GetVector(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("embed cache read failed", logging.Err(err))
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		c.logger.Warn("embed cache entry corrupt", logging.Err(err))
		return nil, false
	}
	return vec, true
}

// SetVector stores a vector under key.  Write failures are logged and
// dropped.
func (c *EmbedCache) SetVector(ctx context.Context, key string, vector []float32) {
	data, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("embed cache write failed", logging.Err(err))
	}
}
