package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/checkoutrelay/internal/config"
)

const keyOrderUser = "checkoutrelay:order:user:%s"

// OrderLimiter throttles order creation per user.
type OrderLimiter struct {
	enabled bool
	bucket  *TokenBucket
	rate    float64
	burst   int
}

func NewOrderLimiter(cfg config.Config, client *redis.Client) (*OrderLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if client == nil {
		return nil, errors.New("rate limit requires REDIS_ADDR")
	}
	if limitCfg.OrderRate <= 0 || limitCfg.OrderBurst <= 0 {
		return nil, errors.New("order rate limit must be positive")
	}

	return &OrderLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.OrderRate,
		burst:   limitCfg.OrderBurst,
	}, nil
}

func (l *OrderLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *OrderLimiter) AllowUser(ctx context.Context, userID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyOrderUser, strings.TrimSpace(userID)), l.rate, l.burst)
}
