// Package ratelimit provides rate limiting domain types for the inspection API.
package ratelimit

import (
	"fmt"
	"time"
)

// Limit defines a rate: Rate events per Period, with up to Burst at once.
type Limit struct {
	Rate   int
	Burst  int
	Period time.Duration
}

// Emission returns the interval between events at the sustained rate.
// Rate below 1 is treated as 1. The result is at least one nanosecond.
func (l Limit) Emission() time.Duration {
	rate := l.Rate
	if rate <= 0 {
		rate = 1
	}
	return max(l.Period/time.Duration(rate), time.Nanosecond)
}

// EffectiveBurst returns Burst, or Rate when Burst is unset.
func (l Limit) EffectiveBurst() int {
	if l.Burst > 0 {
		return l.Burst
	}
	if l.Rate > 0 {
		return l.Rate
	}
	return 1
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed bool
	// Remaining is how many more events fit in the current burst.
	Remaining int
	// RetryAfter is set when the event was refused.
	RetryAfter time.Duration
	// ResetAfter is when the bucket is full again.
	ResetAfter time.Duration
}

// KeyType identifies what a rate limit key is derived from.
type KeyType string

const (
	// KeyTypeIP limits by client address.
	KeyTypeIP KeyType = "ip"
	// KeyTypeAPIKey limits by authenticated API key name.
	KeyTypeAPIKey KeyType = "apikey"
)

// FormatKey returns "ratelimit:{type}:{value}".
func FormatKey(t KeyType, value string) string {
	return fmt.Sprintf("ratelimit:%s:%s", t, value)
}
