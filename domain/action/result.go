package action

import "fmt"

// Status discriminates the result union.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// FailureKind categorizes handler failures.
type FailureKind string

const (
	// FailureGuard means the safety guard rejected the statement.
	FailureGuard FailureKind = "guard_violation"

	// FailureExecution means the database rejected or failed the statement.
	FailureExecution FailureKind = "execution_error"

	// FailureDispatch means no handler is registered under the action name.
	FailureDispatch FailureKind = "unknown_action"

	// FailureInput means the action input did not match the expected form.
	FailureInput FailureKind = "invalid_input"
)

// Result is the tagged outcome of one handler execution.
// Either Data (success) or Kind+Message (failure) is populated.
type Result struct {
	Status  Status      `json:"status"`
	Data    string      `json:"data,omitempty"`
	Kind    FailureKind `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Success creates a successful result carrying the given data.
func Success(data string) Result {
	return Result{Status: StatusSuccess, Data: data}
}

// Failure creates a failed result with a kind and message.
func Failure(kind FailureKind, message string) Result {
	return Result{Status: StatusFailure, Kind: kind, Message: message}
}

// IsFailure reports whether the result is a failure.
func (r Result) IsFailure() bool {
	return r.Status == StatusFailure
}

// Observation renders the result as the literal observation text that is
// appended to the agent context. Failures keep their kind visible so the
// model can recognize and correct them.
func (r Result) Observation() string {
	if r.IsFailure() {
		return fmt.Sprintf("error (%s): %s", r.Kind, r.Message)
	}
	return r.Data
}
