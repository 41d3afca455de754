package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 2 * time.Second

// RedisCache stores JSON-encoded values under a key prefix with a fixed TTL.
// Redis failures degrade to cache misses.
type RedisCache[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to addr. The connection is not checked; use Ping.
func NewRedisCache[T any](addr, prefix string, ttl time.Duration) *RedisCache[T] {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: redisOpTimeout,
		ReadTimeout: redisOpTimeout,
	})
	return &RedisCache[T]{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisCache[T]) key(k string) string {
	return r.prefix + k
}

func (r *RedisCache[T]) Get(key string) (T, bool) {
	var zero T
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Redis get failed", "component", "cache", "key", key, "error", err)
		}
		return zero, false
	}

	var out T
	if err := json.Unmarshal(val, &out); err != nil {
		slog.Warn("Discarding undecodable cache entry", "component", "cache", "key", key, "error", err)
		return zero, false
	}
	return out, true
}

func (r *RedisCache[T]) Set(key string, data T) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Cache value not encodable", "component", "cache", "key", key, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), raw, r.ttl).Err(); err != nil {
		slog.Warn("Redis set failed", "component", "cache", "key", key, "error", err)
	}
}

func (r *RedisCache[T]) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		slog.Warn("Redis delete failed", "component", "cache", "key", key, "error", err)
	}
}

// Size counts the keys under the prefix. It returns 0 when Redis is unreachable.
func (r *RedisCache[T]) Size() int {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	n := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0
	}
	return n
}

// Ping checks the Redis connection for readiness probes.
func (r *RedisCache[T]) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache[T]) Close() error {
	return r.client.Close()
}
