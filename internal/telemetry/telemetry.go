// Package telemetry sets up OpenTelemetry tracing and metrics exported as
// JSON to stdout or a file.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/Sentinel-Gate/httpdissect"

// Config controls telemetry export.
type Config struct {
	Enabled bool
	// Output is "stdout" or a file:// URL with an absolute path.
	Output string
	// MetricsInterval is the export period for metrics. Default 30s.
	MetricsInterval time.Duration
	ServiceVersion  string
}

// Provider owns the tracer and meter providers.
type Provider struct {
	tracer trace.Tracer
	meter  metric.Meter

	tp  *sdktrace.TracerProvider
	mp  *sdkmetric.MeterProvider
	out io.Closer
}

// Setup creates a Provider. When disabled it returns no-op instruments.
func Setup(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{
			tracer: tracenoop.NewTracerProvider().Tracer(instrumentationName),
			meter:  metricnoop.NewMeterProvider().Meter(instrumentationName),
		}, nil
	}

	w, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", "httpdissect"),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	traceExp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		closeQuietly(closer)
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	metricExp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		closeQuietly(closer)
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)

	return &Provider{
		tracer: tp.Tracer(instrumentationName),
		meter:  mp.Meter(instrumentationName),
		tp:     tp,
		mp:     mp,
		out:    closer,
	}, nil
}

// Tracer returns the tracer for service spans.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Meter returns the meter for service instruments.
func (p *Provider) Meter() metric.Meter { return p.meter }

// Shutdown flushes pending spans and metrics and closes the output.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if p.out != nil {
		if err := p.out.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openOutput resolves "stdout", "" or "file:///abs/path". Stdout is never closed.
func openOutput(output string) (io.Writer, io.Closer, error) {
	if output == "" || output == "stdout" {
		return os.Stdout, nil, nil
	}
	path, ok := strings.CutPrefix(output, "file://")
	if !ok || path == "" {
		return nil, nil, fmt.Errorf("unsupported telemetry output %q", output)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open telemetry output: %w", err)
	}
	return f, f, nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
