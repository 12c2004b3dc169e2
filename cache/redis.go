package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/modelgate/db"
	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
)

// RedisCache stores results through db.CacheValue, encrypted when a key is
// configured. Any store failure is logged and reported as a miss.
type RedisCache struct{}

func NewRedisCache() *RedisCache {
	return &RedisCache{}
}

func (r *RedisCache) Get(ctx context.Context, key string) (map[string]interface{}, bool) {
	if db.RedisClient == nil {
		return nil, false
	}
	data, err := db.GetCachedValue(ctx, key)
	if err != nil {
		logger.Warn("Result cache read failed, treating as miss",
			zap.String("key", key),
			zap.Error(gate_errors.ErrCacheUnavailable),
			zap.NamedError("cause", err))
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	value, err := decode(data)
	if err != nil {
		logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return value, true
}

func (r *RedisCache) Put(ctx context.Context, key string, value map[string]interface{}, ttl time.Duration) {
	if db.RedisClient == nil || ttl <= 0 {
		return
	}
	data, err := encode(value)
	if err != nil {
		logger.Warn("Failed to encode cache value", zap.String("key", key), zap.Error(err))
		return
	}
	if err := db.CacheValue(ctx, key, data, ttl); err != nil {
		logger.Warn("Result cache write failed",
			zap.String("key", key),
			zap.Error(gate_errors.ErrCacheUnavailable),
			zap.NamedError("cause", err))
	}
}
