package repository

import (
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/redis/go-redis/v9"
)

func NewRateLimitRepoWithClock(client redis.UniversalClient, cfg config.RateConfig, now func() time.Time) RateLimitRepository {
	return &rateLimitRepository{client: client, cfg: cfg, now: now}
}

var RefreshTokenKey = refreshTokenKey
