package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/uniteorg/unite/internal/config"
)

const keyInviteResolve = "invite:resolve:ip:%s"

// InviteResolveLimiter throttles anonymous invite token lookups per
// client address so tokens cannot be probed by brute force.
type InviteResolveLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewInviteResolveLimiter(cfg config.Config) (*InviteResolveLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.InviteResolveRate <= 0 || limitCfg.InviteResolveBurst <= 0 {
		return nil, errors.New("invite resolve rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &InviteResolveLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.InviteResolveRate,
		burst:   limitCfg.InviteResolveBurst,
	}, nil
}

func (l *InviteResolveLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *InviteResolveLimiter) Allow(ctx context.Context, clientIP string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyInviteResolve, strings.TrimSpace(clientIP)), l.rate, l.burst)
}
