package statemachine

import (
	"testing"

	"github.com/felixgeelhaar/queryagent/domain/trace"
)

func TestNewLoopMachine(t *testing.T) {
	t.Parallel()

	machine, err := NewLoopMachine()
	if err != nil {
		t.Fatalf("NewLoopMachine() error = %v", err)
	}
	if machine == nil {
		t.Fatal("NewLoopMachine() returned nil machine")
	}
}

func TestInterpreterStartsRunning(t *testing.T) {
	t.Parallel()

	machine, _ := NewLoopMachine()
	interp := NewInterpreter(machine, trace.New("run-1"))
	interp.Start()

	if interp.State() != StateRunning {
		t.Errorf("initial state = %s, want %s", interp.State(), StateRunning)
	}
	if !interp.Running() {
		t.Error("Running() = false after start")
	}
	if interp.Done() {
		t.Error("Done() = true after start")
	}
}

func TestInterpreterFinishSuccess(t *testing.T) {
	t.Parallel()

	tr := trace.New("run-1")
	machine, _ := NewLoopMachine()
	interp := NewInterpreter(machine, tr)
	interp.Start()

	interp.FinishSuccess()

	if interp.State() != StateFinishedSuccess {
		t.Errorf("state = %s, want %s", interp.State(), StateFinishedSuccess)
	}
	if !interp.Done() {
		t.Error("Done() = false in terminal state")
	}
	if tr.Terminal != trace.TerminalFinalAnswer {
		t.Errorf("trace terminal = %s, want %s", tr.Terminal, trace.TerminalFinalAnswer)
	}
	if !tr.Success {
		t.Error("trace Success = false after final answer")
	}
}

func TestInterpreterFinishError(t *testing.T) {
	t.Parallel()

	tr := trace.New("run-1")
	machine, _ := NewLoopMachine()
	interp := NewInterpreter(machine, tr)
	interp.Start()

	interp.FinishError(trace.TerminalParseError, "response matched no section")

	if interp.State() != StateFinishedError {
		t.Errorf("state = %s, want %s", interp.State(), StateFinishedError)
	}
	if tr.Terminal != trace.TerminalParseError {
		t.Errorf("trace terminal = %s, want %s", tr.Terminal, trace.TerminalParseError)
	}
	if tr.Success {
		t.Error("trace Success = true after parse error")
	}
	if interp.Reason() != "response matched no section" {
		t.Errorf("Reason() = %q", interp.Reason())
	}
}

func TestInterpreterAbort(t *testing.T) {
	t.Parallel()

	tr := trace.New("run-1")
	machine, _ := NewLoopMachine()
	interp := NewInterpreter(machine, tr)
	interp.Start()

	interp.Abort("iteration budget exhausted")

	if interp.State() != StateAborted {
		t.Errorf("state = %s, want %s", interp.State(), StateAborted)
	}
	if tr.Terminal != trace.TerminalMaxIterations {
		t.Errorf("trace terminal = %s, want %s", tr.Terminal, trace.TerminalMaxIterations)
	}
	if tr.Success {
		t.Error("trace Success = true after abort")
	}
}

func TestTerminalStatesIgnoreFurtherEvents(t *testing.T) {
	t.Parallel()

	tr := trace.New("run-1")
	machine, _ := NewLoopMachine()
	interp := NewInterpreter(machine, tr)
	interp.Start()

	interp.FinishSuccess()
	interp.Abort("late abort")

	if interp.State() != StateFinishedSuccess {
		t.Errorf("state = %s, want %s", interp.State(), StateFinishedSuccess)
	}
	if tr.Terminal != trace.TerminalFinalAnswer {
		t.Errorf("trace terminal = %s, want %s", tr.Terminal, trace.TerminalFinalAnswer)
	}
}
