package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a cache backed by a shared Redis instance, for deployments
// where several processes should reuse each other's lookups.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects a cache to the Redis at addr.
func NewRedis(addr, password string, db int, ttl time.Duration) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("redis cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return payload, true
}

func (r *Redis) Set(ctx context.Context, key string, payload []byte) {
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		zap.L().Warn("redis cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
