package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Provider owns the tracer provider lifecycle for the process.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
}

// ProviderConfig configures the telemetry provider.
type ProviderConfig struct {
	ServiceName    string
	ServiceVersion string

	// Enabled installs an stdout span exporter when true. When false the
	// global noop providers stay in place.
	Enabled bool
}

// NewProvider initializes tracing and registers it globally.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if !config.Enabled {
		return &Provider{}, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tracerProvider: tp}, nil
}

// Tracer returns a named tracer from the installed provider. A noop tracer
// is returned when tracing is disabled.
func (p *Provider) Tracer(name string) oteltrace.Tracer {
	if p.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name)
	}
	return p.tracerProvider.Tracer(name)
}

// Shutdown flushes and stops the tracer provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}
