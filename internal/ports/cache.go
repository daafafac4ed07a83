package ports

import (
	"context"
	"time"
)

// RatesStore caches a provider's full rate table under a short TTL so the
// upstream source is hit at most once per window.
type RatesStore interface {
	Get(ctx context.Context, provider string) (map[string]float64, bool, error)
	Put(ctx context.Context, provider string, rates map[string]float64, ttl time.Duration) error
}

// AggregateStore caches computed product read-model values (lowest price,
// average rating) with SETEX-style TTLs.
type AggregateStore interface {
	GetFloat(ctx context.Context, key string) (float64, bool, error)
	PutFloat(ctx context.Context, key string, value float64, ttl time.Duration) error
}

// RateLimiter is a fixed-window counter keyed by caller identity. Purchase
// endpoints use it to protect the payment gateway from burst traffic.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
