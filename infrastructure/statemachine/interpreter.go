package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/queryagent/domain/trace"
)

// Interpreter wraps the statekit interpreter with loop-specific helpers.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates an interpreter bound to the given trace.
func NewInterpreter(machine *statekit.MachineConfig[*Context], tr *trace.Trace) *Interpreter {
	ctx := &Context{Trace: tr}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{interp: interp, ctx: ctx}
}

// Start enters the running state.
func (i *Interpreter) Start() {
	i.interp.Start()
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current lifecycle state.
func (i *Interpreter) State() State {
	return State(i.interp.State().Value)
}

// Running reports whether the loop may take another iteration.
func (i *Interpreter) Running() bool {
	return i.State() == StateRunning
}

// Done reports whether the machine reached a terminal state.
func (i *Interpreter) Done() bool {
	return i.interp.Done()
}

// Reason returns the reason recorded with the terminating event.
func (i *Interpreter) Reason() string {
	return i.ctx.Reason
}

// FinishSuccess ends the loop with a final answer.
func (i *Interpreter) FinishSuccess() {
	i.send(EventFinishSuccess, OutcomePayload{Terminal: trace.TerminalFinalAnswer})
}

// FinishError ends the loop on an unrecoverable error.
func (i *Interpreter) FinishError(terminal trace.Terminal, reason string) {
	i.send(EventFinishError, OutcomePayload{Terminal: terminal, Reason: reason})
}

// Abort ends the loop because the iteration budget ran out.
func (i *Interpreter) Abort(reason string) {
	i.send(EventAbort, OutcomePayload{Terminal: trace.TerminalMaxIterations, Reason: reason})
}

func (i *Interpreter) send(eventType statekit.EventType, payload OutcomePayload) {
	// Terminal states accept no further events.
	if !i.Running() {
		return
	}
	i.interp.Send(statekit.Event{Type: eventType, Payload: payload})
}
