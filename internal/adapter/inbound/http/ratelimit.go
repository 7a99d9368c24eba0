package http

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/ratelimit"
)

// RateLimitMiddleware refuses requests over limit with 429. Requests are
// keyed by authenticated API key name when present, else by client IP, so
// it must run after AuthMiddleware. Limiter errors fail open.
func RateLimitMiddleware(limiter ratelimit.Limiter, limit ratelimit.Limit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)
			res, err := limiter.Allow(r.Context(), key, limit)
			if err != nil {
				LoggerFromContext(r.Context()).Error("rate limiter failed", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.EffectiveBurst()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				LoggerFromContext(r.Context()).Debug("request rate limited", "key", key, "retry_after", res.RetryAfter)
				writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if name := KeyNameFromContext(r.Context()); name != "" {
		return ratelimit.FormatKey(ratelimit.KeyTypeAPIKey, name)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return ratelimit.FormatKey(ratelimit.KeyTypeIP, host)
}
