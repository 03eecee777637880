package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/felixgeelhaar/queryagent/domain/query"
)

// ErrMigrationFailed indicates the audit schema could not be created.
var ErrMigrationFailed = errors.New("audit migration failed")

// SQLiteLogger is a SQLite-backed Logger.
type SQLiteLogger struct {
	db *sql.DB
}

// NewSQLiteLogger opens (or creates) the audit database at path and
// migrates the schema.
func NewSQLiteLogger(path string) (*SQLiteLogger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	l := &SQLiteLogger{db: db}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// NewSQLiteLoggerFromDB creates a logger from an existing connection.
func NewSQLiteLoggerFromDB(db *sql.DB) (*SQLiteLogger, error) {
	l := &SQLiteLogger{db: db}
	if err := l.migrate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLogger) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS statement_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at INTEGER NOT NULL,
			request_id TEXT NOT NULL,
			statement TEXT NOT NULL,
			provenance TEXT NOT NULL,
			allow_writes INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT,
			row_count INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_statement_audit_recorded_at ON statement_audit(recorded_at);
		CREATE INDEX IF NOT EXISTS idx_statement_audit_request_id ON statement_audit(request_id);
	`

	if _, err := l.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Log records an event.
func (l *SQLiteLogger) Log(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO statement_audit
			(recorded_at, request_id, statement, provenance, allow_writes, outcome, error, row_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Timestamp.UnixNano(),
		event.RequestID,
		event.Statement,
		string(event.Provenance),
		event.AllowWrites,
		string(event.Outcome),
		event.Error,
		event.RowCount,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Recent returns the most recent events, newest first.
func (l *SQLiteLogger) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT recorded_at, request_id, statement, provenance, allow_writes, outcome, error, row_count
		FROM statement_audit
		ORDER BY recorded_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e          Event
			recordedAt int64
			provenance string
			outcome    string
		)
		if err := rows.Scan(&recordedAt, &e.RequestID, &e.Statement, &provenance, &e.AllowWrites, &outcome, &e.Error, &e.RowCount); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(0, recordedAt)
		e.Provenance = query.Provenance(provenance)
		e.Outcome = Outcome(outcome)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close releases the database handle.
func (l *SQLiteLogger) Close() error {
	return l.db.Close()
}
