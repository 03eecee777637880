package trace

import (
	"errors"
	"time"
)

// Terminal identifies how an agent run ended.
type Terminal string

const (
	// TerminalFinalAnswer means the model produced a final answer.
	TerminalFinalAnswer Terminal = "final_answer"

	// TerminalMaxIterations means the iteration budget ran out.
	TerminalMaxIterations Terminal = "max_iterations"

	// TerminalParseError means a model response matched no grammar section.
	TerminalParseError Terminal = "parse_error"
)

// Trace errors.
var (
	// ErrFrozen indicates an append after the trace reached a terminal state.
	ErrFrozen = errors.New("trace is frozen")
)

// Trace is the ordered, append-only record of one agent run.
// It is created per request, mutated step by step, frozen at termination,
// and never persisted.
type Trace struct {
	ID        string    `json:"id"`
	Steps     []Step    `json:"steps"`
	SQL       []string  `json:"sql"`
	Terminal  Terminal  `json:"terminal,omitempty"`
	Success   bool      `json:"success"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// New creates an empty trace for a run.
func New(id string) *Trace {
	return &Trace{
		ID:        id,
		Steps:     make([]Step, 0),
		SQL:       make([]string, 0),
		StartTime: time.Now(),
	}
}

// Append adds a step with the next iteration index.
// Appending to a frozen trace is an invariant violation.
func (t *Trace) Append(step Step) error {
	if t.Frozen() {
		return ErrFrozen
	}
	step.Index = len(t.Steps)
	t.Steps = append(t.Steps, step)
	return nil
}

// RecordSQL appends an executed statement to the trace's SQL list.
func (t *Trace) RecordSQL(sql string) {
	t.SQL = append(t.SQL, sql)
}

// Finish freezes the trace with the given terminal state.
// Only a final-answer terminal counts as success.
func (t *Trace) Finish(terminal Terminal) {
	if t.Frozen() {
		return
	}
	t.Terminal = terminal
	t.Success = terminal == TerminalFinalAnswer
	t.EndTime = time.Now()
}

// Frozen reports whether the trace has reached a terminal state.
func (t *Trace) Frozen() bool {
	return t.Terminal != ""
}

// Iterations returns the number of recorded steps.
func (t *Trace) Iterations() int {
	return len(t.Steps)
}

// FinalAnswer returns the answer text of the terminating step, if any.
func (t *Trace) FinalAnswer() (string, bool) {
	if t.Terminal != TerminalFinalAnswer || len(t.Steps) == 0 {
		return "", false
	}
	last := t.Steps[len(t.Steps)-1]
	return last.FinalAnswer, last.IsFinal()
}

// Reasoning returns the ordered thought texts.
func (t *Trace) Reasoning() []string {
	out := make([]string, 0, len(t.Steps))
	for _, s := range t.Steps {
		out = append(out, s.Thought)
	}
	return out
}

// Observations returns the ordered observation texts.
func (t *Trace) Observations() []string {
	out := make([]string, 0, len(t.Steps))
	for _, s := range t.Steps {
		out = append(out, s.Observation)
	}
	return out
}

// Duration returns how long the run took so far, or in total once frozen.
func (t *Trace) Duration() time.Duration {
	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}
