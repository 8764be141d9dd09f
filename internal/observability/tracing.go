// Package observability wires OpenTelemetry tracing into Genkit's
// tracer provider. Spans flow over OTLP HTTP to a local collector;
// tracing is best effort and never blocks startup.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for trace export.
type Config struct {
	// Endpoint is the OTLP HTTP collector address, host:port. Empty
	// disables tracing.
	Endpoint string
	// ServiceName tags exported spans.
	ServiceName string
}

// Setup registers an OTLP exporter with Genkit's tracer provider and
// returns a shutdown function that flushes pending spans. A failed
// exporter setup logs a warning and returns a no-op shutdown.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Genkit's TracerProvider reads the service name from the
	// environment.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("failed to create trace exporter, tracing disabled", "endpoint", cfg.Endpoint, "error", err)
		return noop
	}

	tracing.TracerProvider().RegisterSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter))
	logger.Debug("tracing enabled", "endpoint", cfg.Endpoint, "service", cfg.ServiceName)
	return tracing.TracerProvider().Shutdown
}
