package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/ratelimit"
)

// RateLimiter implements ratelimit.Limiter with GCRA over an in-process map
// of theoretical arrival times. Idle keys are removed by StartCleanup.
type RateLimiter struct {
	mu  sync.Mutex
	tat map[string]time.Time
	now func() time.Time

	logger          *slog.Logger
	cleanupInterval time.Duration
	maxTTL          time.Duration

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewRateLimiter creates a limiter that drops keys idle for maxTTL, checking
// every cleanupInterval. Zero values default to 5m and 1h.
func NewRateLimiter(cleanupInterval, maxTTL time.Duration, logger *slog.Logger) *RateLimiter {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	if maxTTL <= 0 {
		maxTTL = time.Hour
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RateLimiter{
		tat:             make(map[string]time.Time),
		now:             time.Now,
		logger:          logger,
		cleanupInterval: cleanupInterval,
		maxTTL:          maxTTL,
		stopCh:          make(chan struct{}),
	}
}

// Allow admits one event for key under limit.
func (r *RateLimiter) Allow(_ context.Context, key string, limit ratelimit.Limit) (ratelimit.Result, error) {
	emission := limit.Emission()
	burst := limit.EffectiveBurst()
	tolerance := time.Duration(burst) * emission

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	tat, ok := r.tat[key]
	if !ok || tat.Before(now) {
		tat = now
	}

	if allowAt := tat.Add(-tolerance + emission); now.Before(allowAt) {
		return ratelimit.Result{
			RetryAfter: allowAt.Sub(now),
			ResetAfter: tat.Sub(now),
		}, nil
	}

	tat = tat.Add(emission)
	r.tat[key] = tat

	remaining := int((tolerance - tat.Sub(now)) / emission)
	remaining = max(0, min(remaining, burst))
	return ratelimit.Result{
		Allowed:    true,
		Remaining:  remaining,
		ResetAfter: tat.Sub(now),
	}, nil
}

// StartCleanup removes idle keys in the background until ctx is done or
// Stop is called.
func (r *RateLimiter) StartCleanup(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.cleanup()
			}
		}
	}()
}

func (r *RateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.maxTTL)
	removed := 0
	for key, tat := range r.tat {
		if tat.Before(cutoff) {
			delete(r.tat, key)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug("rate limiter cleanup completed", "removed_keys", removed, "remaining_keys", len(r.tat))
	}
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (r *RateLimiter) Stop() {
	r.once.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// Size returns the number of tracked keys.
func (r *RateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tat)
}

var _ ratelimit.Limiter = (*RateLimiter)(nil)
