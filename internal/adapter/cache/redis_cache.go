package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/lapstore/storefront-api/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisStatusCache fronts the payment status polling endpoint.
type RedisStatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStatusCache(rdb *redis.Client, ttl time.Duration) *RedisStatusCache {
	return &RedisStatusCache{rdb: rdb, ttl: ttl}
}

func statusKey(orderCode int64) string {
	return "payment:status:" + strconv.FormatInt(orderCode, 10)
}

func (r *RedisStatusCache) SetStatus(ctx context.Context, orderCode int64, status string) error {
	return r.rdb.Set(ctx, statusKey(orderCode), status, r.ttl).Err()
}

func (r *RedisStatusCache) GetStatus(ctx context.Context, orderCode int64) (string, bool, error) {
	val, err := r.rdb.Get(ctx, statusKey(orderCode)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

var _ usecase.StatusCache = (*RedisStatusCache)(nil)
