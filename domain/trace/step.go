// Package trace provides the ordered record of one agent run:
// reasoning steps, dispatched actions, and observed results.
package trace

// Step is one reasoning iteration of an agent run.
type Step struct {
	// Index is the zero-based iteration the step belongs to.
	Index int `json:"index"`

	// Thought is the model's reasoning text for this step.
	Thought string `json:"thought,omitempty"`

	// Action is the dispatched action name, empty for terminal steps.
	Action string `json:"action,omitempty"`

	// Input is the literal action input.
	Input string `json:"input,omitempty"`

	// Observation is the literal action result fed back to the model.
	Observation string `json:"observation,omitempty"`

	// FinalAnswer holds the answer text when this is the terminating step.
	FinalAnswer string `json:"final_answer,omitempty"`
}

// IsFinal reports whether the step carries a final answer.
func (s Step) IsFinal() bool {
	return s.FinalAnswer != ""
}
