package ratelimit

import "context"

// Limiter decides whether an event identified by key fits within limit.
//
// Implementations use GCRA (Generic Cell Rate Algorithm), which spreads
// events evenly instead of resetting at window boundaries.
type Limiter interface {
	Allow(ctx context.Context, key string, limit Limit) (Result, error)
}
