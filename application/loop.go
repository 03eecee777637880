package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/queryagent/domain/action"
	"github.com/felixgeelhaar/queryagent/domain/query"
	"github.com/felixgeelhaar/queryagent/domain/trace"
	"github.com/felixgeelhaar/queryagent/infrastructure/handlers"
	"github.com/felixgeelhaar/queryagent/infrastructure/llm"
	"github.com/felixgeelhaar/queryagent/infrastructure/logging"
	"github.com/felixgeelhaar/queryagent/infrastructure/parser"
	"github.com/felixgeelhaar/queryagent/infrastructure/prompt"
	"github.com/felixgeelhaar/queryagent/infrastructure/statemachine"
	"github.com/felixgeelhaar/queryagent/infrastructure/telemetry"
)

// DefaultMaxIterations bounds an agent run when no limit is configured.
const DefaultMaxIterations = 5

// unparseableNotice is the diagnostic reasoning entry recorded when a
// model turn matches no grammar section.
const unparseableNotice = "Unable to parse action"

// AgentLoop runs the bounded reason-act-observe protocol. Each run is one
// sequential flow: the only suspend points are the model invocation and
// the action dispatch.
type AgentLoop struct {
	provider      llm.Provider
	builder       *prompt.Builder
	model         string
	maxIterations int
	machine       *statekit.MachineConfig[*statemachine.Context]
	metrics       telemetry.Metrics
}

// AgentLoopConfig configures the loop.
type AgentLoopConfig struct {
	Provider      llm.Provider
	Builder       *prompt.Builder
	Model         string
	MaxIterations int
	Metrics       telemetry.Metrics
}

// NewAgentLoop creates an agent loop.
func NewAgentLoop(cfg AgentLoopConfig) (*AgentLoop, error) {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NoopMetrics{}
	}

	machine, err := statemachine.NewLoopMachine()
	if err != nil {
		return nil, fmt.Errorf("building loop machine: %w", err)
	}

	return &AgentLoop{
		provider:      cfg.Provider,
		builder:       cfg.Builder,
		model:         cfg.Model,
		maxIterations: cfg.MaxIterations,
		machine:       machine,
		metrics:       cfg.Metrics,
	}, nil
}

// Run executes the loop for one question. The returned trace is frozen on
// every path except an unrecoverable model error, which is returned as a
// non-nil error for the orchestrator to handle. Loop-level failures (an
// unparseable turn, an exhausted budget) are recorded on the trace, not
// returned as errors.
func (l *AgentLoop) Run(ctx context.Context, requestID, question string, policy query.Policy, registry *action.Registry) (*trace.Trace, query.ResultSet, error) {
	tr := trace.New(requestID)
	interp := statemachine.NewInterpreter(l.machine, tr)
	interp.Start()
	defer interp.Stop()

	system := l.builder.System(policy, prompt.ModeAgent, actionSpecs(registry))

	var history strings.Builder
	var lastRows query.ResultSet

	for iteration := 0; iteration < l.maxIterations && interp.Running(); iteration++ {
		content, err := l.invoke(ctx, system, history.String(), question)
		if err != nil {
			return tr, lastRows, err
		}

		resp, err := parser.Parse(content)
		if err != nil || (!resp.HasFinalAnswer() && !resp.HasAction()) {
			_ = tr.Append(trace.Step{Thought: unparseableNotice})
			interp.FinishError(trace.TerminalParseError, unparseableNotice)
			break
		}

		// Final Answer wins over an Action block in the same response;
		// no action is dispatched that turn.
		if resp.HasFinalAnswer() {
			_ = tr.Append(trace.Step{
				Thought:     resp.Thought,
				FinalAnswer: resp.FinalAnswer,
			})
			interp.FinishSuccess()
			break
		}

		result := registry.Dispatch(ctx, resp.Action, resp.ActionInput)
		l.metrics.RecordActionDispatch(ctx, resp.Action, !result.IsFailure())

		observation := result.Observation()
		_ = tr.Append(trace.Step{
			Thought:     resp.Thought,
			Action:      resp.Action,
			Input:       resp.ActionInput,
			Observation: observation,
		})

		if resp.Action == handlers.SQLQueryName {
			tr.RecordSQL(strings.TrimSpace(resp.ActionInput))
			if !result.IsFailure() {
				if rows, ok := decodeRows(result.Data); ok {
					lastRows = rows
				}
			}
		}

		logging.Debug().
			Add(logging.RequestID(requestID)).
			Add(logging.Iteration(iteration)).
			Add(logging.Action(resp.Action)).
			Msg("action dispatched")

		// The observation is appended verbatim so later turns see the
		// full history, never a summary.
		fmt.Fprintf(&history, "Thought: %s\nAction: %s\nAction Input: %s\nObservation: %s\n\n",
			resp.Thought, resp.Action, resp.ActionInput, observation)
	}

	if interp.Running() {
		interp.Abort("iteration budget exhausted")
	}

	l.metrics.RecordLoopIterations(ctx, tr.Iterations(), string(tr.Terminal))

	logging.Info().
		Add(logging.RequestID(requestID)).
		Add(logging.Terminal(string(tr.Terminal))).
		Add(logging.Iteration(tr.Iterations())).
		Msg("agent run finished")

	return tr, lastRows, nil
}

// invoke performs the single model exchange for one iteration.
func (l *AgentLoop) invoke(ctx context.Context, system, history, question string) (string, error) {
	var user strings.Builder
	if history != "" {
		user.WriteString(history)
	}
	user.WriteString(l.builder.User(question))
	user.WriteString("\n\n")
	user.WriteString(prompt.FormatInstruction)

	req := llm.CompletionRequest{
		Model: l.model,
		Messages: []llm.Message{
			llm.SystemMessage(system),
			llm.UserMessage(user.String()),
		},
		Temperature: 0,
	}

	start := time.Now()
	resp, err := l.provider.Complete(ctx, req)
	l.metrics.RecordModelCall(ctx, l.provider.Name(), time.Since(start), err)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// actionSpecs renders the registry contents for the system prompt.
func actionSpecs(registry *action.Registry) []prompt.ActionSpec {
	names := registry.Names()
	specs := make([]prompt.ActionSpec, 0, len(names))
	for _, name := range names {
		h, ok := registry.Get(name)
		if !ok {
			continue
		}
		specs = append(specs, prompt.ActionSpec{
			Name:        h.Name(),
			Description: h.Description(),
		})
	}
	return specs
}

// decodeRows recovers the result set from a sql-query observation.
func decodeRows(data string) (query.ResultSet, bool) {
	var rows query.ResultSet
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return query.ResultSet{}, false
	}
	return rows, true
}
