package mcp

import (
	"context"
	"database/sql"
	"time"
)

// auditTimeFormat has fixed-width fractions so timestamps sort as text.
const auditTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// AuditEntry records one tool invocation.
type AuditEntry struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ToolName     string    `json:"tool_name"`
	InputJSON    string    `json:"input_json"`
	Caller       string    `json:"caller"` // "http" or "stdio"
	DurationMs   int64     `json:"duration_ms"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// AuditStore persists MCP tool calls in mcp_audit_log.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore wraps db. Run the mcp migrations first.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Insert records an audit entry.
func (s *AuditStore) Insert(ctx context.Context, entry AuditEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mcp_audit_log (timestamp, tool_name, input_json, caller, duration_ms, success, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.UTC().Format(auditTimeFormat),
		entry.ToolName,
		entry.InputJSON,
		entry.Caller,
		entry.DurationMs,
		entry.Success,
		entry.ErrorMessage,
	)
	return err
}

// List returns one page of entries, newest first, and the total number of
// entries matching toolName (all tools when empty).
func (s *AuditStore) List(ctx context.Context, toolName string, limit, offset int) ([]AuditEntry, int, error) {
	where, args := "", []any{}
	if toolName != "" {
		where, args = " WHERE tool_name = ?", append(args, toolName)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM mcp_audit_log"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, tool_name, input_json, caller, duration_ms, success, error_message
		 FROM mcp_audit_log`+where+` ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]AuditEntry, 0, min(limit, total))
	for rows.Next() {
		var e AuditEntry
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.ToolName, &e.InputJSON, &e.Caller, &e.DurationMs, &e.Success, &e.ErrorMessage); err != nil {
			return nil, 0, err
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
