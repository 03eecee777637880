// Package statemachine provides the statekit integration for the agent
// loop lifecycle. The loop runs in a single active state and ends in one
// of three terminal states, each tied to a trace terminal.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/queryagent/domain/trace"
)

// State identifies a loop lifecycle state.
type State string

const (
	// StateRunning is the single active state of the loop.
	StateRunning State = "running"

	// StateFinishedSuccess means the model produced a final answer.
	StateFinishedSuccess State = "finished_success"

	// StateFinishedError means the loop stopped on an unrecoverable error.
	StateFinishedError State = "finished_error"

	// StateAborted means the iteration budget ran out.
	StateAborted State = "aborted"
)

// Events driving the loop machine.
const (
	EventFinishSuccess statekit.EventType = "FINISH_SUCCESS"
	EventFinishError   statekit.EventType = "FINISH_ERROR"
	EventAbort         statekit.EventType = "ABORT"
)

const (
	stateRunning         = statekit.StateID(StateRunning)
	stateFinishedSuccess = statekit.StateID(StateFinishedSuccess)
	stateFinishedError   = statekit.StateID(StateFinishedError)
	stateAborted         = statekit.StateID(StateAborted)
)

// Context carries the run trace through the machine.
type Context struct {
	Trace  *trace.Trace
	Reason string
}

// OutcomePayload carries the trace terminal with a terminating event.
type OutcomePayload struct {
	Terminal trace.Terminal
	Reason   string
}

// NewLoopMachine creates the loop lifecycle statechart.
func NewLoopMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("loop").
		WithInitial(stateRunning).
		WithContext(&Context{}).
		WithAction("freezeTrace", freezeTrace).
		State(stateRunning).
			On("FINISH_SUCCESS").Target(stateFinishedSuccess).Do("freezeTrace").
			On("FINISH_ERROR").Target(stateFinishedError).Do("freezeTrace").
			On("ABORT").Target(stateAborted).Do("freezeTrace").
			Done().
		State(stateFinishedSuccess).
			Final().
			Done().
		State(stateFinishedError).
			Final().
			Done().
		State(stateAborted).
			Final().
			Done().
		Build()
}

// freezeTrace finishes the trace with the terminal from the event payload.
// In statekit, actions on a *Context machine receive **Context.
func freezeTrace(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).Trace == nil {
		return
	}

	c := *ctx
	if payload, ok := event.Payload.(OutcomePayload); ok {
		c.Reason = payload.Reason
		c.Trace.Finish(payload.Terminal)
	}
}
