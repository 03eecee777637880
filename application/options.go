package application

import (
	"github.com/felixgeelhaar/queryagent/domain/cache"
	"github.com/felixgeelhaar/queryagent/domain/query"
	"github.com/felixgeelhaar/queryagent/infrastructure/audit"
	"github.com/felixgeelhaar/queryagent/infrastructure/executor"
	"github.com/felixgeelhaar/queryagent/infrastructure/llm"
	"github.com/felixgeelhaar/queryagent/infrastructure/prompt"
	"github.com/felixgeelhaar/queryagent/infrastructure/telemetry"
)

// OrchestratorConfig carries the orchestrator dependencies and settings.
type OrchestratorConfig struct {
	Provider llm.Provider
	Builder  *prompt.Builder
	Executor executor.Executor
	Model    string

	AgentEnabled  bool
	MaxIterations int
	SafeStatement string

	Auditor audit.Logger
	Metrics telemetry.Metrics
	Cache   cache.Cache

	// PolicySource returns the policy for a new request. It is read once
	// per request; configuration reload swaps it between requests only.
	PolicySource func() query.Policy
}

func (c *OrchestratorConfig) applyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.SafeStatement == "" {
		c.SafeStatement = DefaultSafeStatement
	}
	if c.Auditor == nil {
		c.Auditor = audit.Nop{}
	}
	if c.Metrics == nil {
		c.Metrics = telemetry.NoopMetrics{}
	}
	if c.PolicySource == nil {
		c.PolicySource = func() query.Policy { return query.ReadOnlyPolicy() }
	}
}

// Option configures the orchestrator.
type Option func(*OrchestratorConfig)

// WithAgentEnabled toggles the agent path.
func WithAgentEnabled(enabled bool) Option {
	return func(c *OrchestratorConfig) {
		c.AgentEnabled = enabled
	}
}

// WithMaxIterations sets the agent iteration budget.
func WithMaxIterations(n int) Option {
	return func(c *OrchestratorConfig) {
		c.MaxIterations = n
	}
}

// WithSafeStatement sets the statement substituted for guard-rejected
// direct translations.
func WithSafeStatement(sql string) Option {
	return func(c *OrchestratorConfig) {
		c.SafeStatement = sql
	}
}

// WithAuditor sets the statement audit logger.
func WithAuditor(a audit.Logger) Option {
	return func(c *OrchestratorConfig) {
		c.Auditor = a
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *OrchestratorConfig) {
		c.Metrics = m
	}
}

// WithCache sets the schema introspection cache.
func WithCache(c cache.Cache) Option {
	return func(cfg *OrchestratorConfig) {
		cfg.Cache = c
	}
}

// WithPolicySource sets the per-request policy source.
func WithPolicySource(source func() query.Policy) Option {
	return func(c *OrchestratorConfig) {
		c.PolicySource = source
	}
}
