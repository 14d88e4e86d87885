package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	loginAttemptsPrefix = "login_attempts:"
	refreshTokenPrefix  = "refresh_token:"
)

type RateLimitRepository interface {
	// CheckLoginRateLimit records an attempt and returns whether it is allowed,
	// the attempts left and the seconds to wait when it is not.
	CheckLoginRateLimit(ctx context.Context, username string) (bool, int, int, error)
	ResetLoginRateLimit(ctx context.Context, username string) error
}

type TokenRepository interface {
	StoreRefreshToken(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	// ConsumeRefreshToken returns the owner of token and deletes it, so each
	// refresh token is usable once.
	ConsumeRefreshToken(ctx context.Context, token string) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, token string) error
}

func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	slog.Info("Connecting to Redis", slog.String("host", cfg.RedisConnect.Host), slog.String("port", cfg.RedisConnect.Port))

	opt, err := redis.ParseURL(cfg.RedisConnect.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.DB = cfg.RedisConnect.DB

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis")

	return client, nil
}

type rateLimitRepository struct {
	client redis.UniversalClient
	cfg    config.RateConfig
	now    func() time.Time
}

func NewRateLimitRepo(client redis.UniversalClient, cfg config.RateConfig) RateLimitRepository {
	return &rateLimitRepository{client: client, cfg: cfg, now: time.Now}
}

// Attempts live in a sorted set scored by millisecond timestamp. Members carry
// the nanosecond clock so attempts in the same millisecond stay distinct.
func (r *rateLimitRepository) CheckLoginRateLimit(ctx context.Context, username string) (bool, int, int, error) {
	logger := middleware.LoggerFromContext(ctx)

	key := loginAttemptsPrefix + username
	now := r.now()
	nowMs := now.UnixMilli()
	windowStart := nowMs - r.cfg.WindowSize.Milliseconds()

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(nowMs), Member: strconv.FormatInt(now.UnixNano(), 10)})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, r.cfg.WindowSize)

	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("Redis pipeline failed for rate limit", slog.String("key", key), slog.Any("error", err))
		return false, 0, 0, fmt.Errorf("redis pipeline error for rate limit check: %w", err)
	}

	attempts := count.Val()
	if attempts <= r.cfg.MaxAttempts {
		return true, int(r.cfg.MaxAttempts - attempts), 0, nil
	}

	oldest, err := r.client.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil || len(oldest) == 0 {
		logger.Error("Failed to read oldest login attempt", slog.String("key", key), slog.Any("error", err))
		return false, 0, int(r.cfg.WindowSize.Seconds()), nil
	}

	retryAfterMs := max(int64(oldest[0].Score)+r.cfg.WindowSize.Milliseconds()-nowMs, 0)

	logger.Warn("Login rate limit exceeded", slog.String("username", username), slog.Int64("attempts", attempts))

	return false, 0, int((retryAfterMs + 999) / 1000), nil
}

func (r *rateLimitRepository) ResetLoginRateLimit(ctx context.Context, username string) error {
	if err := r.client.Del(ctx, loginAttemptsPrefix+username).Err(); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}

	return nil
}

type tokenRepository struct {
	client redis.UniversalClient
}

func NewTokenRepo(client redis.UniversalClient) TokenRepository {
	return &tokenRepository{client: client}
}

// Tokens are stored by digest so a Redis dump does not leak usable tokens.
func refreshTokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))

	return refreshTokenPrefix + hex.EncodeToString(sum[:])
}

func (r *tokenRepository) StoreRefreshToken(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	if err := r.client.Set(ctx, refreshTokenKey(token), userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

func (r *tokenRepository) ConsumeRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := r.client.GetDel(ctx, refreshTokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrNotFound
		}

		return uuid.Nil, fmt.Errorf("failed to read refresh token: %w", err)
	}

	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt refresh token entry: %w", err)
	}

	return userID, nil
}

func (r *tokenRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, refreshTokenKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}
