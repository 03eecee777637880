// Package handlers provides the action handlers the agent loop can
// dispatch to: SQL execution, schema introspection, and error
// classification.
package handlers

import (
	"context"
	"encoding/json"

	"github.com/felixgeelhaar/queryagent/domain/action"
	"github.com/felixgeelhaar/queryagent/domain/query"
	"github.com/felixgeelhaar/queryagent/infrastructure/audit"
	"github.com/felixgeelhaar/queryagent/infrastructure/executor"
	"github.com/felixgeelhaar/queryagent/infrastructure/logging"
)

// SQLQueryName is the registered name of the SQL execution handler.
const SQLQueryName = "sql-query"

// SQLQuery executes guarded SELECT statements inside the agent loop.
// It never bypasses the safety guard: every input is validated under the
// request policy before it reaches the database.
type SQLQuery struct {
	exec      executor.Executor
	policy    query.Policy
	auditor   audit.Logger
	requestID string
}

// SQLQueryConfig configures the handler for one request.
type SQLQueryConfig struct {
	Executor  executor.Executor
	Policy    query.Policy
	Auditor   audit.Logger
	RequestID string
}

// NewSQLQuery creates the sql-query handler.
func NewSQLQuery(cfg SQLQueryConfig) *SQLQuery {
	auditor := cfg.Auditor
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &SQLQuery{
		exec:      cfg.Executor,
		policy:    cfg.Policy,
		auditor:   auditor,
		requestID: cfg.RequestID,
	}
}

// Name returns the handler name.
func (h *SQLQuery) Name() string { return SQLQueryName }

// Description returns the model-facing description.
func (h *SQLQuery) Description() string {
	return "Execute a SELECT statement against the database. Input: the SQL statement."
}

// Execute validates and runs the statement. All failures are returned
// in-band so the model can self-correct from the observation.
func (h *SQLQuery) Execute(ctx context.Context, input string) action.Result {
	stmt, err := query.Validate(input, h.policy, query.ProvenanceAgentStep)
	if err != nil {
		_ = h.auditor.Log(ctx, audit.Event{
			RequestID:   h.requestID,
			Statement:   input,
			Provenance:  query.ProvenanceAgentStep,
			AllowWrites: h.policy.AllowWrites,
			Outcome:     audit.OutcomeRejected,
			Error:       err.Error(),
		})
		if query.IsGuardViolation(err) {
			return action.Failure(action.FailureGuard, err.Error())
		}
		return action.Failure(action.FailureInput, err.Error())
	}

	result, err := h.exec.ExecSelect(ctx, stmt.Text)
	if err != nil {
		_ = h.auditor.Log(ctx, audit.Event{
			RequestID:   h.requestID,
			Statement:   stmt.Text,
			Provenance:  stmt.Provenance,
			AllowWrites: h.policy.AllowWrites,
			Outcome:     audit.OutcomeFailed,
			Error:       err.Error(),
		})
		return action.Failure(action.FailureExecution, err.Error())
	}

	_ = h.auditor.Log(ctx, audit.Event{
		RequestID:   h.requestID,
		Statement:   stmt.Text,
		Provenance:  stmt.Provenance,
		AllowWrites: h.policy.AllowWrites,
		Outcome:     audit.OutcomeExecuted,
		RowCount:    result.RowCount,
	})

	logging.Debug().
		Add(logging.RequestID(h.requestID)).
		Add(logging.SQL(stmt.Text)).
		Add(logging.RowCount(result.RowCount)).
		Msg("statement executed")

	data, err := json.Marshal(result)
	if err != nil {
		return action.Failure(action.FailureExecution, "failed to encode result: "+err.Error())
	}
	return action.Success(string(data))
}
