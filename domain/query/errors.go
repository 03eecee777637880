package query

import (
	"errors"
	"fmt"
)

// Domain errors for the query model.
var (
	// ErrEmptyStatement indicates the candidate text was empty after normalization.
	ErrEmptyStatement = errors.New("statement is empty")
)

// GuardViolationError indicates the guard rejected a candidate statement
// under the active policy. Raw preserves the original, unnormalized text.
type GuardViolationError struct {
	Raw string
}

func (e *GuardViolationError) Error() string {
	return fmt.Sprintf("guard violation: statement is not a SELECT: %q", truncate(e.Raw, 120))
}

// IsGuardViolation reports whether err is a guard rejection.
func IsGuardViolation(err error) bool {
	var gv *GuardViolationError
	return errors.As(err, &gv)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
