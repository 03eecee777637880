package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/queryagent/domain/action"
	"github.com/felixgeelhaar/queryagent/domain/query"
	"github.com/felixgeelhaar/queryagent/domain/trace"
	"github.com/felixgeelhaar/queryagent/infrastructure/audit"
	"github.com/felixgeelhaar/queryagent/infrastructure/handlers"
	"github.com/felixgeelhaar/queryagent/infrastructure/logging"
)

// DefaultSafeStatement is returned in place of a guard-rejected direct
// translation. It must itself pass the guard.
const DefaultSafeStatement = "SELECT 'This system only answers read-only questions; modifying statements are not executed' AS message"

// Fallback notices recorded in the synthetic trace when the agent path is
// answered by direct translation.
const (
	noticeAgentDisabled = "Agent mode is disabled; the question was answered by direct translation."
	noticeAgentError    = "The agent run failed; the question was answered by direct translation."
)

// ErrUnknownMode indicates a mode other than direct or agent.
var ErrUnknownMode = errors.New("unknown translation mode")

// Orchestrator selects the translation path for a prompt and produces the
// uniform outcome shape. Action handlers are constructed per request so
// each run sees an immutable policy snapshot.
type Orchestrator struct {
	cfg    OrchestratorConfig
	direct *DirectTranslator
	loop   *AgentLoop
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig, opts ...Option) (*Orchestrator, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.applyDefaults()

	if cfg.Provider == nil {
		return nil, errors.New("orchestrator requires a model provider")
	}
	if cfg.Executor == nil {
		return nil, errors.New("orchestrator requires a database executor")
	}

	// The safe statement is part of the guard surface; a configuration
	// that ships a non-SELECT here is refused at startup.
	if _, err := query.Validate(cfg.SafeStatement, query.ReadOnlyPolicy(), query.ProvenanceDirect); err != nil {
		return nil, fmt.Errorf("safe statement rejected by guard: %w", err)
	}

	direct := NewDirectTranslator(cfg.Provider, cfg.Builder, cfg.Model, cfg.Metrics)

	loop, err := NewAgentLoop(AgentLoopConfig{
		Provider:      cfg.Provider,
		Builder:       cfg.Builder,
		Model:         cfg.Model,
		MaxIterations: cfg.MaxIterations,
		Metrics:       cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Orchestrator{cfg: cfg, direct: direct, loop: loop}, nil
}

// Process translates one prompt in the requested mode.
// Direct-mode failures are hard errors. Agent-mode loop failures are
// reported through the trace with success=false, not through the error.
func (o *Orchestrator) Process(ctx context.Context, question string, mode Mode) (Outcome, error) {
	requestID := uuid.NewString()
	policy := o.cfg.PolicySource()

	logging.Info().
		Add(logging.RequestID(requestID)).
		Add(logging.Mode(string(mode))).
		Add(logging.AllowWrites(policy.AllowWrites)).
		Msg("processing prompt")

	switch mode {
	case ModeDirect:
		res, err := o.runDirect(ctx, requestID, question, policy)
		o.cfg.Metrics.RecordTranslation(ctx, string(ModeDirect), err == nil)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeDirect, Direct: res}, nil

	case ModeAgent:
		return o.runAgent(ctx, requestID, question, policy)

	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// runDirect translates and executes one statement. A guard rejection is
// answered with the configured safe statement instead of the rejected text.
func (o *Orchestrator) runDirect(ctx context.Context, requestID, question string, policy query.Policy) (*DirectResult, error) {
	stmt, err := o.direct.Translate(ctx, question, policy)
	if err != nil {
		var gv *query.GuardViolationError
		if !errors.As(err, &gv) {
			return nil, err
		}

		_ = o.cfg.Auditor.Log(ctx, audit.Event{
			RequestID:   requestID,
			Statement:   gv.Raw,
			Provenance:  query.ProvenanceDirect,
			AllowWrites: policy.AllowWrites,
			Outcome:     audit.OutcomeRejected,
			Error:       err.Error(),
		})

		stmt, err = query.Validate(o.cfg.SafeStatement, query.ReadOnlyPolicy(), query.ProvenanceDirect)
		if err != nil {
			return nil, fmt.Errorf("safe statement rejected by guard: %w", err)
		}
	}

	rows, err := o.cfg.Executor.ExecSelect(ctx, stmt.Text)
	if err != nil {
		_ = o.cfg.Auditor.Log(ctx, audit.Event{
			RequestID:   requestID,
			Statement:   stmt.Text,
			Provenance:  stmt.Provenance,
			AllowWrites: policy.AllowWrites,
			Outcome:     audit.OutcomeFailed,
			Error:       err.Error(),
		})
		return nil, err
	}

	_ = o.cfg.Auditor.Log(ctx, audit.Event{
		RequestID:   requestID,
		Statement:   stmt.Text,
		Provenance:  stmt.Provenance,
		AllowWrites: policy.AllowWrites,
		Outcome:     audit.OutcomeExecuted,
		RowCount:    rows.RowCount,
	})

	return &DirectResult{RequestID: requestID, Statement: stmt, Rows: rows}, nil
}

// runAgent executes the loop, falling back to direct translation when the
// agent is disabled or fails unrecoverably.
func (o *Orchestrator) runAgent(ctx context.Context, requestID, question string, policy query.Policy) (Outcome, error) {
	if !o.cfg.AgentEnabled {
		o.cfg.Metrics.RecordFallback(ctx, "agent_disabled")
		res, err := o.runDirect(ctx, requestID, question, policy)
		o.cfg.Metrics.RecordTranslation(ctx, string(ModeAgent), err == nil)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeAgent, Agent: wrapDirect(requestID, res, noticeAgentDisabled)}, nil
	}

	registry := o.buildRegistry(requestID, policy)
	tr, rows, err := o.loop.Run(ctx, requestID, question, policy, registry)
	if err != nil {
		// Unrecoverable model failure: exactly one direct attempt before
		// the failure surfaces.
		o.cfg.Metrics.RecordFallback(ctx, "agent_error")
		logging.Warn().
			Add(logging.RequestID(requestID)).
			Add(logging.ErrorField(err)).
			Msg("agent run failed, attempting direct fallback")

		res, derr := o.runDirect(ctx, requestID, question, policy)
		o.cfg.Metrics.RecordTranslation(ctx, string(ModeAgent), derr == nil)
		if derr != nil {
			return Outcome{}, fmt.Errorf("agent run failed (%v); direct fallback failed: %w", err, derr)
		}
		return Outcome{Kind: OutcomeAgent, Agent: wrapDirect(requestID, res, noticeAgentError)}, nil
	}

	o.cfg.Metrics.RecordTranslation(ctx, string(ModeAgent), tr.Success)
	return Outcome{Kind: OutcomeAgent, Agent: newAgentResult(requestID, tr, rows)}, nil
}

// buildRegistry constructs the per-request action handlers. The policy is
// captured once here and never re-read during the run.
func (o *Orchestrator) buildRegistry(requestID string, policy query.Policy) *action.Registry {
	registry := action.NewRegistry()

	_ = registry.Register(handlers.NewSQLQuery(handlers.SQLQueryConfig{
		Executor:  o.cfg.Executor,
		Policy:    policy,
		Auditor:   o.cfg.Auditor,
		RequestID: requestID,
	}))
	_ = registry.Register(handlers.NewInspector(o.cfg.Executor, o.cfg.Cache))

	analyzer := handlers.NewAnalyzer()
	analyzer.Tables = func(ctx context.Context) ([]string, error) {
		return o.cfg.Executor.Tables(ctx)
	}
	_ = registry.Register(analyzer)

	return registry
}

// wrapDirect renders a direct result in the agent shape with a synthetic
// one-step trace carrying the fallback notice.
func wrapDirect(requestID string, res *DirectResult, notice string) *AgentResult {
	tr := trace.New(requestID)
	_ = tr.Append(trace.Step{Thought: notice, FinalAnswer: res.Statement.Text})
	tr.RecordSQL(res.Statement.Text)
	tr.Finish(trace.TerminalFinalAnswer)
	return newAgentResult(requestID, tr, res.Rows)
}
