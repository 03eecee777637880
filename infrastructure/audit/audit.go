// Package audit records every statement that reaches execution, and every
// guard rejection, for later review. Traces themselves are never persisted;
// the audit log is the only durable record the core produces.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/queryagent/domain/query"
)

// Outcome categorizes what happened to a statement.
type Outcome string

const (
	// OutcomeExecuted means the statement ran against the database.
	OutcomeExecuted Outcome = "executed"

	// OutcomeRejected means the guard refused the statement.
	OutcomeRejected Outcome = "rejected"

	// OutcomeFailed means the database rejected or failed the statement.
	OutcomeFailed Outcome = "failed"
)

// Event is one audit record.
type Event struct {
	Timestamp   time.Time        `json:"timestamp"`
	RequestID   string           `json:"request_id"`
	Statement   string           `json:"statement"`
	Provenance  query.Provenance `json:"provenance"`
	AllowWrites bool             `json:"allow_writes"`
	Outcome     Outcome          `json:"outcome"`
	Error       string           `json:"error,omitempty"`
	RowCount    int              `json:"row_count,omitempty"`
}

// Logger records audit events.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Close releases resources.
	Close() error
}

// MemoryLogger implements Logger using in-memory storage, for tests and
// for deployments that only want log-line auditing.
type MemoryLogger struct {
	mu     sync.Mutex
	events []Event
	maxLen int
}

// NewMemoryLogger creates a new in-memory audit logger.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{
		events: make([]Event, 0),
		maxLen: 10000,
	}
}

// Log records an event.
func (l *MemoryLogger) Log(_ context.Context, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	l.events = append(l.events, event)
	if len(l.events) > l.maxLen {
		l.events = l.events[len(l.events)-l.maxLen:]
	}
	return nil
}

// Events returns a copy of the recorded events.
func (l *MemoryLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Close is a no-op.
func (l *MemoryLogger) Close() error {
	return nil
}

// Nop is a Logger that discards everything.
type Nop struct{}

// Log discards the event.
func (Nop) Log(context.Context, Event) error { return nil }

// Close is a no-op.
func (Nop) Close() error { return nil }
