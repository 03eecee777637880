package application

import (
	"github.com/felixgeelhaar/queryagent/domain/query"
	"github.com/felixgeelhaar/queryagent/domain/trace"
)

// Mode selects the translation path.
type Mode string

const (
	// ModeDirect runs the one-shot translator.
	ModeDirect Mode = "direct"

	// ModeAgent runs the bounded reasoning loop.
	ModeAgent Mode = "agent"
)

// OutcomeKind discriminates the outcome union.
type OutcomeKind string

const (
	OutcomeDirect OutcomeKind = "direct"
	OutcomeAgent  OutcomeKind = "agent"
)

// Outcome is the uniform result of one processed prompt. Exactly one of
// Direct and Agent is set, selected by Kind.
type Outcome struct {
	Kind   OutcomeKind   `json:"kind"`
	Direct *DirectResult `json:"direct,omitempty"`
	Agent  *AgentResult  `json:"agent,omitempty"`
}

// DirectResult is the outcome of a one-shot translation.
type DirectResult struct {
	RequestID string          `json:"request_id"`
	Statement query.Statement `json:"statement"`
	Rows      query.ResultSet `json:"rows"`
}

// AgentResult is the outcome of an agent run.
type AgentResult struct {
	RequestID    string          `json:"request_id"`
	Answer       string          `json:"answer,omitempty"`
	SQL          []string        `json:"sql,omitempty"`
	Rows         query.ResultSet `json:"rows"`
	Reasoning    []string        `json:"reasoning"`
	Observations []string        `json:"observations"`
	Iterations   int             `json:"iterations"`
	Success      bool            `json:"success"`
	Trace        *trace.Trace    `json:"trace,omitempty"`
}

// newAgentResult assembles the agent result shape from a frozen trace.
func newAgentResult(requestID string, tr *trace.Trace, rows query.ResultSet) *AgentResult {
	answer, _ := tr.FinalAnswer()
	return &AgentResult{
		RequestID:    requestID,
		Answer:       answer,
		SQL:          tr.SQL,
		Rows:         rows,
		Reasoning:    tr.Reasoning(),
		Observations: tr.Observations(),
		Iterations:   tr.Iterations(),
		Success:      tr.Success,
		Trace:        tr,
	}
}
