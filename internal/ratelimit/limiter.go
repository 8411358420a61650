package ratelimit

import "context"

// RateLimiter controls send throughput per tenant and channel.
type RateLimiter interface {
	Allow(ctx context.Context, tenant, channel string) (bool, error)
	Wait(ctx context.Context, tenant, channel string) error
}

// Noop admits every call. Used when no Redis is configured.
type Noop struct{}

var _ RateLimiter = Noop{}

func (Noop) Allow(context.Context, string, string) (bool, error) { return true, nil }

func (Noop) Wait(ctx context.Context, _, _ string) error { return ctx.Err() }
