package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/ratelimit"
	"github.com/Sentinel-Gate/httpdissect/internal/port/inbound"
)

const shutdownTimeout = 10 * time.Second

// Server is the inbound adapter exposing a Dissector over HTTP.
type Server struct {
	svc         inbound.Dissector
	addr        string
	logger      *slog.Logger
	verifier    *KeyVerifier
	health      *HealthChecker
	metrics     *Metrics
	gatherer    prometheus.Gatherer
	maxBody     int64
	readTimeout time.Duration
	limiter     ratelimit.Limiter
	limit       ratelimit.Limit

	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address. Default "127.0.0.1:8081".
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithKeyVerifier enables bearer authentication on /v1 routes.
func WithKeyVerifier(v *KeyVerifier) Option {
	return func(s *Server) { s.verifier = v }
}

// WithHealthChecker sets the /health handler.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(s *Server) { s.health = hc }
}

// WithMetrics records request metrics and serves gatherer on /metrics.
func WithMetrics(m *Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithRateLimiter limits /v1 requests per API key or client IP.
func WithRateLimiter(l ratelimit.Limiter, limit ratelimit.Limit) Option {
	return func(s *Server) {
		s.limiter = l
		s.limit = limit
	}
}

// WithMaxBodyBytes limits request bodies. Zero disables the limit.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// WithReadTimeout sets the server read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// NewServer creates a server for svc.
func NewServer(svc inbound.Dissector, opts ...Option) *Server {
	s := &Server{
		svc:         svc,
		addr:        "127.0.0.1:8081",
		logger:      slog.Default(),
		maxBody:     1 << 20,
		readTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.health == nil {
		s.health = NewHealthChecker(nil, nil, "")
	}
	return s
}

// Handler builds the route table:
//
//	POST /v1/classify
//	POST /v1/dissect?as=&decode_body=
//	POST /v1/serialize
//	POST /v1/segments?src_port=&dst_port=
//	GET  /v1/captures?filter=&kind=&limit=
//	GET  /health
//	GET  /metrics
func (s *Server) Handler() http.Handler {
	a := &api{svc: s.svc}
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"POST /v1/classify", a.classify},
		{"POST /v1/dissect", a.dissect},
		{"POST /v1/serialize", a.serialize},
		{"POST /v1/segments", a.ingest},
		{"GET /v1/captures", a.captures},
	}

	mux := http.NewServeMux()
	for _, rt := range routes {
		var h http.Handler = rt.handler
		h = limitBody(s.maxBody)(h)
		if s.limiter != nil {
			h = RateLimitMiddleware(s.limiter, s.limit)(h)
		}
		h = AuthMiddleware(s.verifier)(h)
		if s.metrics != nil {
			h = MetricsMiddleware(s.metrics, rt.pattern)(h)
		}
		mux.Handle(rt.pattern, h)
	}
	mux.Handle("GET /health", s.health.Handler())
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return RequestIDMiddleware(s.logger)(mux)
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: s.readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting inspection API", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down inspection API")
		err := s.shutdown()
		<-errCh
		return err
	case err := <-errCh:
		return err
	}
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return err
	}
	s.logger.Info("inspection API shutdown complete")
	return nil
}
