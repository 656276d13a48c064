// Package telemetry sets up OpenTelemetry tracing and metrics. Spans and
// metric snapshots are written as JSON to rotating files under the
// configured directory.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/comigor/leo-go/internal/config"
	"github.com/comigor/leo-go/internal/logger"
)

const (
	ServiceName    = "leo"
	ServiceVersion = "1.0.0"
)

// Providers exposes the instruments the rest of the app records into.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	shutdown func(context.Context)
}

// Shutdown flushes pending spans and metrics and releases the files.
func (p Providers) Shutdown(ctx context.Context) {
	if p.shutdown != nil {
		p.shutdown(ctx)
	}
}

// Noop returns providers that record nothing.
func Noop() Providers {
	return Providers{
		Tracer: tracenoop.NewTracerProvider().Tracer(ServiceName),
		Meter:  metricnoop.NewMeterProvider().Meter(ServiceName),
	}
}

// Init builds the providers described by cfg and installs them globally.
// When telemetry is disabled it returns Noop providers.
func Init(ctx context.Context, cfg config.TelemetryConfig) (Providers, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return Providers{}, fmt.Errorf("failed to create resource: %w", err)
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Providers{}, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	traceFile := rotating(filepath.Join(dir, "leo_traces.log"))
	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(traceFile))
	if err != nil {
		return Providers{}, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	metricsFile := rotating(filepath.Join(dir, "leo_metrics.log"))
	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(metricsFile))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return Providers{}, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.L.Info("telemetry enabled", "dir", dir, "metric_interval", interval)

	return Providers{
		Tracer: tp.Tracer(ServiceName),
		Meter:  mp.Meter(ServiceName),
		shutdown: func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.L.Error("failed to shutdown tracer provider", "error", err)
			}
			if err := mp.Shutdown(ctx); err != nil {
				logger.L.Error("failed to shutdown meter provider", "error", err)
			}
			if err := traceFile.Close(); err != nil {
				logger.L.Error("failed to close trace file", "error", err)
			}
			if err := metricsFile.Close(); err != nil {
				logger.L.Error("failed to close metrics file", "error", err)
			}
		},
	}, nil
}

func rotating(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}
