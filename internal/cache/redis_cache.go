package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/redis/go-redis/v9"
)

// redisCache stores values as JSON under the configured namespace, so several
// deployments can share one Redis without colliding on "coupon:SAVE10".
type redisCache struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

func NewRedisCache(client redis.UniversalClient, cfg *config.CacheConfig) Cache {
	return &redisCache{
		client:    client,
		namespace: cfg.Namespace,
		ttl:       cfg.DefaultTTL,
	}
}

func (r *redisCache) key(k string) string {
	if r.namespace == "" {
		return k
	}

	return r.namespace + ":" + k
}

func (r *redisCache) Get(ctx context.Context, key string, value any) (bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()

	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("cache get %q: %w", key, err)
	}

	if err := json.Unmarshal(data, value); err != nil {
		return false, fmt.Errorf("cache entry %q is not valid JSON: %w", key, err)
	}

	return true, nil
}

// Set uses the configured default when ttl is not positive. Entries never
// live forever.
func (r *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %q: %w", key, err)
	}

	if ttl <= 0 {
		ttl = r.ttl
	}

	return wrap("set", key, r.client.Set(ctx, r.key(key), data, ttl).Err())
}

// Delete drops keys with UNLINK so large coupon lists are reclaimed off the
// request path.
func (r *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}

	return wrap("unlink", fmt.Sprint(keys), r.client.Unlink(ctx, full...).Err())
}

// Close is a no-op; the client is owned by main.
func (r *redisCache) Close() error {
	return nil
}

func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("cache %s %q: %w", op, key, err)
}
