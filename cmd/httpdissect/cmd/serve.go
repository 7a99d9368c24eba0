package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	apihttp "github.com/Sentinel-Gate/httpdissect/internal/adapter/inbound/http"
	"github.com/Sentinel-Gate/httpdissect/internal/adapter/outbound/cel"
	"github.com/Sentinel-Gate/httpdissect/internal/adapter/outbound/coding"
	"github.com/Sentinel-Gate/httpdissect/internal/adapter/outbound/memory"
	"github.com/Sentinel-Gate/httpdissect/internal/config"
	"github.com/Sentinel-Gate/httpdissect/internal/domain/ratelimit"
	"github.com/Sentinel-Gate/httpdissect/internal/service"
	"github.com/Sentinel-Gate/httpdissect/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the inspection API",
	Long: `Run the inspection API. Payloads posted to /v1/segments on a gated port
are dissected and captured to the configured store; /v1/captures lists
them with optional CEL filters.

Examples:
  httpdissect serve
  httpdissect --config /etc/httpdissect/httpdissect.yaml serve --dev`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var devMode bool

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load without validation so CLI flags can override first.
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// stop() restores default signal handling so a second Ctrl+C exits immediately.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop()
	}()

	logger := newLogger(cfg, os.Stderr)
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	if err := serve(ctx, cfg, logger); err != nil {
		return err
	}
	logger.Info("httpdissect stopped")
	return nil
}

// serve wires every component and blocks until ctx is done.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tel, err := telemetry.Setup(telemetry.Config{
		Enabled:         cfg.Telemetry.Enabled,
		Output:          cfg.Telemetry.Output,
		MetricsInterval: cfg.Telemetry.MetricsIntervalDuration(),
		ServiceVersion:  Version,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close capture store", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := apihttp.NewMetrics(reg)
	recorder, err := telemetry.NewRecorder(tel.Meter(), metrics)
	if err != nil {
		return fmt.Errorf("failed to create metrics recorder: %w", err)
	}

	writer := service.NewCaptureWriter(store, logger,
		service.WithQueueSize(cfg.Capture.ChannelSize),
		service.WithBatchSize(cfg.Capture.BatchSize),
		service.WithFlushInterval(cfg.Capture.FlushIntervalDuration()),
		service.WithSendTimeout(cfg.Capture.SendTimeoutDuration()),
		service.WithQueueWarning(cfg.Capture.WarningThreshold),
		service.WithWriterMetrics(recorder),
	)
	writer.Start(ctx)
	defer func() {
		writer.Stop()
		logger.Info("capture writer stopped", "stored", writer.Stored(), "dropped", writer.Dropped())
	}()

	filters, err := cel.NewEvaluator(logger)
	if err != nil {
		return fmt.Errorf("failed to create filter evaluator: %w", err)
	}

	registry := service.DefaultRegistry(cfg.LayerPorts()...)
	svc := service.NewDissectService(logger,
		service.WithRegistry(registry),
		service.WithRecordWriter(writer),
		service.WithStore(store),
		service.WithFilterCompiler(filters),
		service.WithBodyDecoder(coding.NewDecoder(0)),
		service.WithMetrics(recorder),
		service.WithTracer(tel.Tracer()),
	)
	logger.Info("http bound to ports", "ports", registry.Ports())

	keys := make([]apihttp.APIKey, 0, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		keys = append(keys, apihttp.APIKey{Name: k.Name, Hash: k.KeyHash})
	}
	if len(keys) == 0 {
		logger.Warn("no API keys configured, inspection API is unauthenticated")
	}

	serverOpts := []apihttp.Option{
		apihttp.WithAddr(cfg.Server.HTTPAddr),
		apihttp.WithLogger(logger),
		apihttp.WithKeyVerifier(apihttp.NewKeyVerifier(keys)),
		apihttp.WithHealthChecker(apihttp.NewHealthChecker(store, writer, Version)),
		apihttp.WithMetrics(metrics, reg),
		apihttp.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		apihttp.WithReadTimeout(cfg.Server.ReadTimeoutDuration()),
	}
	if cfg.RateLimit.Enabled {
		limiter := memory.NewRateLimiter(cfg.RateLimit.CleanupIntervalDuration(), cfg.RateLimit.MaxTTLDuration(), logger)
		limiter.StartCleanup(ctx)
		defer limiter.Stop()
		serverOpts = append(serverOpts, apihttp.WithRateLimiter(limiter, ratelimit.Limit{
			Rate:   cfg.RateLimit.Rate,
			Burst:  cfg.RateLimit.Burst,
			Period: cfg.RateLimit.PeriodDuration(),
		}))
		logger.Info("rate limiting enabled", "rate", cfg.RateLimit.Rate, "period", cfg.RateLimit.Period)
	}

	return apihttp.NewServer(svc, serverOpts...).Start(ctx)
}
