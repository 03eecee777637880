package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewMetricsProvider(t *testing.T) {
	t.Parallel()

	mp, err := NewMetricsProvider(DefaultMetricsConfig())
	if err != nil {
		t.Fatalf("NewMetricsProvider() error = %v", err)
	}
	if mp == nil {
		t.Fatal("NewMetricsProvider() returned nil")
	}
}

func TestNewMetricsProviderDefaultsEmptyConfig(t *testing.T) {
	t.Parallel()

	mp, err := NewMetricsProvider(MetricsConfig{})
	if err != nil {
		t.Fatalf("NewMetricsProvider() error = %v", err)
	}
	if mp == nil {
		t.Fatal("NewMetricsProvider() returned nil")
	}
}

func TestRecordingDoesNotPanic(t *testing.T) {
	t.Parallel()

	mp, err := NewMetricsProvider(DefaultMetricsConfig())
	if err != nil {
		t.Fatalf("NewMetricsProvider() error = %v", err)
	}

	ctx := context.Background()
	mp.RecordTranslation(ctx, "direct", true)
	mp.RecordGuardRejection(ctx, "agent-step")
	mp.RecordModelCall(ctx, "openai", 120*time.Millisecond, nil)
	mp.RecordModelCall(ctx, "openai", 5*time.Millisecond, errors.New("transport"))
	mp.RecordActionDispatch(ctx, "sql-query", true)
	mp.RecordFallback(ctx, "agent_error")
	mp.RecordLoopIterations(ctx, 3, "final_answer")
}

func TestNoopMetrics(t *testing.T) {
	t.Parallel()

	var m Metrics = NoopMetrics{}
	ctx := context.Background()
	m.RecordTranslation(ctx, "agent", false)
	m.RecordGuardRejection(ctx, "direct")
	m.RecordModelCall(ctx, "ollama", time.Second, nil)
	m.RecordActionDispatch(ctx, "schema-inspector", false)
	m.RecordFallback(ctx, "agent_disabled")
	m.RecordLoopIterations(ctx, 1, "parse_error")
}

func TestProviderDisabled(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(ProviderConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestProviderTracerDisabled(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(ProviderConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	tracer := p.Tracer("queryagent-test")
	if tracer == nil {
		t.Fatal("Tracer() = nil, want noop tracer")
	}
	_, span := tracer.Start(context.Background(), "translate")
	span.End()
}

func TestProviderEnabledShutdown(t *testing.T) {
	p, err := NewProvider(ProviderConfig{
		ServiceName:    "queryagent",
		ServiceVersion: "test",
		Enabled:        true,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	if p.Tracer("queryagent") == nil {
		t.Fatal("Tracer() = nil, want a tracer from the installed provider")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
