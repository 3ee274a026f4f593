// Package tracing installs the OpenTelemetry tracer provider. Spans are
// written by the stdout exporter, which is enough to follow a review or a
// recalculation through the services when debugging.
package tracing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config controls tracer setup.
type Config struct {
	Enabled     bool
	ServiceName string
	// Writer receives exported spans. Defaults to stdout.
	Writer io.Writer
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// Setup installs a global tracer provider. When tracing is disabled the
// global no-op provider is left in place and the returned shutdown does
// nothing.
func Setup(cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		logger.Debug("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing enabled", slog.String("service_name", cfg.ServiceName))
	return provider.Shutdown, nil
}

// NewProvider builds a tracer provider exporting to cfg.Writer without
// installing it globally.
func NewProvider(cfg Config) (*sdktrace.TracerProvider, error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	name := cfg.ServiceName
	if name == "" {
		name = "revision-scheduler"
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", name),
		)),
	), nil
}

// TraceID returns the trace id of the span in ctx, or "" when ctx carries no
// recording span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
