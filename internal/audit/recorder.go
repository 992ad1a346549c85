// Package audit keeps a durable trail of configuration and permission
// mutations so administrative changes to the shared document can be traced
// after the fact.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id TEXT NOT NULL,
	actor TEXT NOT NULL,
	action TEXT NOT NULL,
	target TEXT NOT NULL DEFAULT '',
	key_path TEXT NOT NULL DEFAULT '',
	old_value TEXT NOT NULL DEFAULT '',
	new_value TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_audit_trace ON audit_log(trace_id);
CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_log(actor);
`

// Entry is one recorded mutation.
type Entry struct {
	ID        int64     `json:"id"`
	TraceID   string    `json:"trace_id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	KeyPath   string    `json:"key_path,omitempty"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder persists audit entries to a local SQLite database.
type Recorder struct {
	db *sql.DB
}

// Open opens (or creates) the audit database at dbPath.
func Open(dbPath string) (*Recorder, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply audit schema: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Close releases the database handle.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// RecordConfigChange records one accepted setConfig mutation and returns
// its trace id.
func (r *Recorder) RecordConfigChange(actor, target, keyPath string, oldValue, newValue any) (string, error) {
	return r.record(actor, "config_set", target, keyPath, encode(oldValue), encode(newValue))
}

// RecordPermissionChange records one permission mutation and returns its
// trace id.
func (r *Recorder) RecordPermissionChange(actor, userID, action, detail string) (string, error) {
	return r.record(actor, action, userID, "", "", detail)
}

func (r *Recorder) record(actor, action, target, keyPath, oldValue, newValue string) (string, error) {
	traceID := uuid.NewString()
	_, err := r.db.Exec(
		`INSERT INTO audit_log (trace_id, actor, action, target, key_path, old_value, new_value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		traceID, actor, action, target, keyPath, oldValue, newValue, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return traceID, nil
}

// Recent returns the newest entries, most recent first.
func (r *Recorder) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, trace_id, actor, action, target, key_path, old_value, new_value, created_at
		 FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.TraceID, &e.Actor, &e.Action, &e.Target, &e.KeyPath, &e.OldValue, &e.NewValue, &created); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func encode(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
