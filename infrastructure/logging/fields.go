package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// RequestID adds a request ID field.
func RequestID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("request_id", id)
	}
}

// Mode adds the processing mode (direct or agent).
func Mode(mode string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("mode", mode)
	}
}

// Iteration adds the agent loop iteration index.
func Iteration(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("iteration", n)
	}
}

// Action adds an action name field.
func Action(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("action", name)
	}
}

// SQL adds a SQL statement field.
func SQL(sql string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("sql", sql)
	}
}

// Provider adds a language-model provider name.
func Provider(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("provider", name)
	}
}

// RowCount adds a result row count.
func RowCount(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("row_count", n)
	}
}

// AllowWrites adds the active policy toggle.
func AllowWrites(allowed bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("allow_writes", allowed)
	}
}

// Terminal adds an agent terminal state field.
func Terminal(terminal string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("terminal", terminal)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Str adds an arbitrary string field.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
