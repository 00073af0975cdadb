// Package store provides the optional execution journal: an append-only
// sqlite log of completed runs for offline inspection. Sessions themselves
// are in-memory only; nothing is ever restored from the journal.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS executions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	task        TEXT NOT NULL,
	output      TEXT NOT NULL,
	success     INTEGER NOT NULL,
	error_kind  TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_session ON executions(session_id, created_at);
`

// Entry is one journaled run.
type Entry struct {
	SessionID  string    `json:"session_id"`
	Task       string    `json:"task"`
	Output     string    `json:"output"`
	Success    bool      `json:"success"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Journal is an append-only run log. Safe for concurrent use; sqlite
// serializes writers internally.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database and ensures the schema.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends one entry.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO executions (session_id, task, output, success, error_kind, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Task, e.Output, boolToInt(e.Success), e.ErrorKind, e.DurationMs, createdAt.UnixMilli(),
	)
	return err
}

// Recent returns the most recent entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT session_id, task, output, success, error_kind, duration_ms, created_at
		 FROM executions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var success int
		var createdMs int64
		if err := rows.Scan(&e.SessionID, &e.Task, &e.Output, &success, &e.ErrorKind, &e.DurationMs, &createdMs); err != nil {
			return nil, err
		}
		e.Success = success != 0
		e.CreatedAt = time.UnixMilli(createdMs)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
