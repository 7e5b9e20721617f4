package mcp

import (
	"database/sql"

	"github.com/axiom-ai/axiom/pkg/plugin"
)

func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create mcp audit log table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS mcp_audit_log (
						id            INTEGER PRIMARY KEY AUTOINCREMENT,
						timestamp     TEXT    NOT NULL,
						tool_name     TEXT    NOT NULL,
						input_json    TEXT    NOT NULL DEFAULT '{}',
						caller        TEXT    NOT NULL DEFAULT 'stdio',
						duration_ms   INTEGER NOT NULL DEFAULT 0,
						success       INTEGER NOT NULL DEFAULT 1,
						error_message TEXT    NOT NULL DEFAULT ''
					)`,
					`CREATE INDEX IF NOT EXISTS idx_mcp_audit_tool_time ON mcp_audit_log(tool_name, timestamp)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
