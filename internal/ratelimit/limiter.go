package ratelimit

import "context"

// RateLimiter caps provider call throughput per notification channel.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}
