package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache stores JSON encoded values. Get reports a miss as (false, nil).
type Cache interface {
	Get(ctx context.Context, key string, value any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

func Key(prefix string, id string) string {
	return prefix + ":" + id
}

const (
	ProductKeyPrefix       = "product"
	CouponKeyPrefix        = "coupon"
	ActiveCouponsKeyPrefix = "coupons:active"
)

// Remember returns the cached value for key, or calls load and caches its
// result for ttl. Cache failures fall through to load and are only logged.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T

	found, err := c.Get(ctx, key, &cached)
	if err != nil {
		slog.WarnContext(ctx, "Cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	if found {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		var zero T

		return zero, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		slog.WarnContext(ctx, "Cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	return value, nil
}
