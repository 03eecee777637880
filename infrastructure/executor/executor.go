// Package executor provides the database-execution capability: SELECT
// execution and schema introspection against the configured database.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/queryagent/domain/query"
)

// Executor is the database capability consumed by the query core.
// The connection pool is owned by the implementation; checkout and return
// discipline is internal to it.
type Executor interface {
	// ExecSelect executes a SELECT statement and returns the ordered rows.
	// Implementations apply their own non-SELECT rejection as a second line
	// of defense behind the safety guard.
	ExecSelect(ctx context.Context, sql string, args ...any) (query.ResultSet, error)

	// Tables lists the base tables visible to the agent.
	Tables(ctx context.Context) ([]string, error)

	// Describe returns column metadata for a table.
	Describe(ctx context.Context, table string) ([]Column, error)

	// Sample returns the first limit rows of a table.
	Sample(ctx context.Context, table string, limit int) (query.ResultSet, error)
}

// Column describes one table column.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

// Executor errors.
var (
	// ErrNotSelect indicates the executor refused a non-SELECT statement.
	ErrNotSelect = errors.New("executor only accepts SELECT statements")

	// ErrTableNotFound indicates the named table is not in the catalog.
	ErrTableNotFound = errors.New("table not found")
)

// ExecutionError wraps a database failure with the offending statement.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
