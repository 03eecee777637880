// Package telemetry provides OpenTelemetry metrics for the query agent.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordTranslation(ctx context.Context, mode string, success bool)
	RecordGuardRejection(ctx context.Context, provenance string)
	RecordModelCall(ctx context.Context, provider string, duration time.Duration, err error)
	RecordActionDispatch(ctx context.Context, actionName string, success bool)
	RecordFallback(ctx context.Context, reason string)
	RecordLoopIterations(ctx context.Context, iterations int, terminal string)
}

// MetricsProvider records agent metrics on OpenTelemetry instruments.
type MetricsProvider struct {
	meter metric.Meter

	translations    metric.Int64Counter
	guardRejections metric.Int64Counter
	modelCalls      metric.Int64Counter
	actionDispatch  metric.Int64Counter
	fallbacks       metric.Int64Counter

	modelLatency   metric.Float64Histogram
	loopIterations metric.Int64Histogram
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/queryagent",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a metrics provider on the global meter provider.
func NewMetricsProvider(config MetricsConfig) (*MetricsProvider, error) {
	if config.MeterName == "" {
		config = DefaultMetricsConfig()
	}

	meter := otel.GetMeterProvider().Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{meter: meter}
	if err := mp.initInstruments(); err != nil {
		return nil, err
	}
	return mp, nil
}

func (mp *MetricsProvider) initInstruments() error {
	var err error

	mp.translations, err = mp.meter.Int64Counter(
		"queryagent.translations",
		metric.WithDescription("Number of translation requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	mp.guardRejections, err = mp.meter.Int64Counter(
		"queryagent.guard.rejections",
		metric.WithDescription("Number of statements rejected by the safety guard"),
		metric.WithUnit("{statement}"),
	)
	if err != nil {
		return err
	}

	mp.modelCalls, err = mp.meter.Int64Counter(
		"queryagent.model.calls",
		metric.WithDescription("Number of model invocations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	mp.actionDispatch, err = mp.meter.Int64Counter(
		"queryagent.action.dispatches",
		metric.WithDescription("Number of action dispatches in the agent loop"),
		metric.WithUnit("{dispatch}"),
	)
	if err != nil {
		return err
	}

	mp.fallbacks, err = mp.meter.Int64Counter(
		"queryagent.fallbacks",
		metric.WithDescription("Number of agent-to-direct fallbacks"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return err
	}

	mp.modelLatency, err = mp.meter.Float64Histogram(
		"queryagent.model.latency",
		metric.WithDescription("Latency of model invocations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.loopIterations, err = mp.meter.Int64Histogram(
		"queryagent.loop.iterations",
		metric.WithDescription("Iterations per agent run"),
		metric.WithUnit("{iteration}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordTranslation records one translation request.
func (mp *MetricsProvider) RecordTranslation(ctx context.Context, mode string, success bool) {
	mp.translations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Bool("success", success),
	))
}

// RecordGuardRejection records a guard rejection.
func (mp *MetricsProvider) RecordGuardRejection(ctx context.Context, provenance string) {
	mp.guardRejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provenance", provenance),
	))
}

// RecordModelCall records one model invocation with its latency.
func (mp *MetricsProvider) RecordModelCall(ctx context.Context, provider string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.Bool("success", err == nil),
	}
	mp.modelCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.modelLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordActionDispatch records one action dispatch.
func (mp *MetricsProvider) RecordActionDispatch(ctx context.Context, actionName string, success bool) {
	mp.actionDispatch.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action.name", actionName),
		attribute.Bool("success", success),
	))
}

// RecordFallback records an agent-to-direct fallback.
func (mp *MetricsProvider) RecordFallback(ctx context.Context, reason string) {
	mp.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordLoopIterations records the iteration count of a finished agent run.
func (mp *MetricsProvider) RecordLoopIterations(ctx context.Context, iterations int, terminal string) {
	mp.loopIterations.Record(ctx, int64(iterations), metric.WithAttributes(
		attribute.String("terminal", terminal),
	))
}

// NoopMetrics is a no-op metrics recorder for tests or disabled telemetry.
type NoopMetrics struct{}

// RecordTranslation is a no-op.
func (NoopMetrics) RecordTranslation(context.Context, string, bool) {}

// RecordGuardRejection is a no-op.
func (NoopMetrics) RecordGuardRejection(context.Context, string) {}

// RecordModelCall is a no-op.
func (NoopMetrics) RecordModelCall(context.Context, string, time.Duration, error) {}

// RecordActionDispatch is a no-op.
func (NoopMetrics) RecordActionDispatch(context.Context, string, bool) {}

// RecordFallback is a no-op.
func (NoopMetrics) RecordFallback(context.Context, string) {}

// RecordLoopIterations is a no-op.
func (NoopMetrics) RecordLoopIterations(context.Context, int, string) {}

var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetrics{}
)
