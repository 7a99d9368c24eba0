package http

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
)

// HealthResponse is the JSON body of /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

// QueueStats exposes capture queue state.
type QueueStats interface {
	QueueDepth() int
	QueueCapacity() int
	Dropped() int64
}

// HealthChecker reports the state of the capture pipeline.
type HealthChecker struct {
	store   capture.Store
	queue   QueueStats
	version string
}

// NewHealthChecker creates a checker. Nil components are reported as not configured.
func NewHealthChecker(store capture.Store, queue QueueStats, version string) *HealthChecker {
	return &HealthChecker{store: store, queue: queue, version: version}
}

// Check runs every check. A queue above 90% or a failing store query
// makes the service unhealthy.
func (h *HealthChecker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]string)
	healthy := true

	if h.store != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := h.store.Query(ctx, capture.Query{Limit: 1})
		cancel()
		if err != nil {
			checks["store"] = "error: " + err.Error()
			healthy = false
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "not configured"
	}

	if h.queue != nil {
		depth, capacity := h.queue.QueueDepth(), h.queue.QueueCapacity()
		pct := 0
		if capacity > 0 {
			pct = depth * 100 / capacity
		}
		if pct > 90 {
			checks["capture_queue"] = fmt.Sprintf("degraded: %d/%d (%d%%)", depth, capacity, pct)
			healthy = false
		} else {
			checks["capture_queue"] = fmt.Sprintf("ok: %d/%d (%d%%)", depth, capacity, pct)
		}
		if drops := h.queue.Dropped(); drops > 0 {
			checks["capture_drops"] = fmt.Sprintf("%d dropped", drops)
		}
	} else {
		checks["capture_queue"] = "not configured"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	return HealthResponse{Status: status, Checks: checks, Version: h.version}
}

// Handler serves the health report, with 503 when unhealthy.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check(r.Context())
		status := http.StatusOK
		if health.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, health)
	})
}
