// Package cache implements ports.Cache on Redis, with a no-op fallback for
// deployments that run without one.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/quotes-service/internal/domain"
)

// Config contains Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis implements ports.Cache.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisWithClient(client, cfg.Prefix), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Get returns domain.ErrNotFound on a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NewNotFoundError("cache entry", key)
	}

	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	return val, nil
}

// Set stores value with ttl. A zero ttl keeps the key until deleted.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// Delete removes keys; missing keys are ignored.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.prefix + k
	}

	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Name implements ports.HealthChecker.
func (r *Redis) Name() string {
	return "redis"
}

// Check implements ports.HealthChecker.
func (r *Redis) Check(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Optional marks Redis as non-critical: rankings fall through to Postgres.
func (r *Redis) Optional() bool {
	return true
}

// Noop is a cache that stores nothing.
type Noop struct{}

// Get always misses.
func (Noop) Get(_ context.Context, key string) ([]byte, error) {
	return nil, domain.NewNotFoundError("cache entry", key)
}

// Set discards the value.
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete does nothing.
func (Noop) Delete(context.Context, ...string) error { return nil }
