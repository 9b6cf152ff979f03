// Package redis provides the shared embedding-vector cache tier backed by
// go-redis.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/derril-tech/ai-patent-explorer/internal/config"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
)

const connectTimeout = 5 * time.Second

// NewClient opens and verifies a Redis connection.
func NewClient(cfg config.RedisConfig, log logging.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "redis connection failed")
	}

	log.Info("connected to redis", logging.String("addr", cfg.Addr))
	return rdb, nil
}
