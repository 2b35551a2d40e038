// Package obs wires the shared OpenTelemetry tracer/meter providers
// and exposes the per-package tracers and meters the rest of the
// module pulls via otel.Tracer/otel.Meter, the same global-registry
// style the teacher's storage/dolt package uses (otel.Tracer("...")
// at package scope, no local provider plumbing). Grounded on the
// teacher's go.mod OTEL stack: otel/sdk, sdk/metric,
// exporters/stdout/{stdouttrace,stdoutmetric}, and
// exporters/otlp/otlpmetric/otlpmetrichttp for a production collector
// target.
package obs

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const instrumentationName = "github.com/brightfunnel/disposition"

// Config controls exporter selection. Logging in this module stays on
// the standard library (see cmd/*/main.go's log.Printf/log.Fatalf
// calls), matching the teacher's own stdlib-based internal/debug
// package rather than introducing a structured-logging dependency
// neither the teacher nor the rest of the pack actually uses; tracing
// and metrics are OTEL.
type Config struct {
	ServiceName string
	// OTLPEndpoint, when set, sends metrics to a collector over
	// otlpmetrichttp instead of stdout. Traces always export to
	// stderr through the stdouttrace exporter in this module; there is no otlptrace dependency in the
	// pack to ground an OTLP trace exporter on.
	OTLPEndpoint string
}

// Providers holds the shutdown hooks for the process-wide tracer and
// meter providers.
type Providers struct {
	ShutdownTrace  func(context.Context) error
	ShutdownMetric func(context.Context) error
}

// Setup installs global tracer and meter providers and returns their
// shutdown hooks. Call once at process start in each cmd/ binary.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "disposition"
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("build trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricReader, err := newMetricReader(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(metricReader),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return &Providers{
		ShutdownTrace:  tp.Shutdown,
		ShutdownMetric: mp.Shutdown,
	}, nil
}

func newMetricReader(ctx context.Context, cfg Config) (metric.Reader, error) {
	if cfg.OTLPEndpoint != "" {
		exporter, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		if err != nil {
			return nil, fmt.Errorf("build otlp metric exporter: %w", err)
		}
		return metric.NewPeriodicReader(exporter), nil
	}

	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("build stdout metric exporter: %w", err)
	}
	return metric.NewPeriodicReader(exporter), nil
}

