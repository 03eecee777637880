package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/queryagent/domain/query"
)

// Postgres is a pgx-backed Executor.
type Postgres struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPostgres creates a Postgres executor over an externally-owned pool.
func NewPostgres(pool *pgxpool.Pool, schema string) *Postgres {
	if schema == "" {
		schema = "public"
	}
	return &Postgres{
		pool:   pool,
		schema: schema,
	}
}

// ExecSelect executes a SELECT statement.
// The lexical non-SELECT check duplicates the safety guard on purpose: the
// executor is the last line of defense regardless of how the SQL reached it.
func (p *Postgres) ExecSelect(ctx context.Context, sql string, args ...any) (query.ResultSet, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(sql)), "select") {
		return query.ResultSet{}, &ExecutionError{SQL: sql, Err: ErrNotSelect}
	}

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return query.ResultSet{}, &ExecutionError{SQL: sql, Err: err}
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return query.ResultSet{}, &ExecutionError{SQL: sql, Err: err}
	}
	return result, nil
}

// Tables lists base tables in the configured schema.
func (p *Postgres) Tables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := p.pool.Query(ctx, q, p.schema)
	if err != nil {
		return nil, &ExecutionError{SQL: q, Err: err}
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Describe returns column metadata for a table. The identifier is passed
// as a bound parameter against the catalog.
func (p *Postgres) Describe(ctx context.Context, table string) ([]Column, error) {
	const q = `
		SELECT column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := p.pool.Query(ctx, q, p.schema, table)
	if err != nil {
		return nil, &ExecutionError{SQL: q, Err: err}
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.DataType, &col.Nullable); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return columns, nil
}

// Sample returns the first limit rows of a table. The identifier is
// interpolated only after its existence is confirmed against the catalog;
// it is not otherwise escaped.
func (p *Postgres) Sample(ctx context.Context, table string, limit int) (query.ResultSet, error) {
	if _, err := p.Describe(ctx, table); err != nil {
		return query.ResultSet{}, err
	}

	sql := fmt.Sprintf("SELECT * FROM %s.%s LIMIT %d", p.schema, table, limit)

	rows, err := p.pool.Query(ctx, sql)
	if err != nil {
		return query.ResultSet{}, &ExecutionError{SQL: sql, Err: err}
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return query.ResultSet{}, &ExecutionError{SQL: sql, Err: err}
	}
	return result, nil
}

// collectRows scans all rows into records, preserving column order.
func collectRows(rows pgx.Rows) (query.ResultSet, error) {
	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	records := make([]query.Record, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return query.ResultSet{}, err
		}

		record := make(query.Record, len(columns))
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			record[col] = val
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return query.ResultSet{}, err
	}

	return query.NewResultSet(columns, records), nil
}
