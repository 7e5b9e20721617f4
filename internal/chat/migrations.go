package chat

import (
	"database/sql"

	"github.com/axiom-ai/axiom/pkg/plugin"
)

func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create chat sessions, messages and attachments",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS chat_sessions (
						id TEXT PRIMARY KEY,
						user_id TEXT NOT NULL,
						title TEXT NOT NULL DEFAULT '',
						created_at DATETIME NOT NULL,
						updated_at DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions(user_id, updated_at)`,
					`CREATE TABLE IF NOT EXISTS chat_messages (
						id TEXT PRIMARY KEY,
						session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
						role TEXT NOT NULL CHECK (role IN ('system', 'user', 'assistant')),
						content TEXT NOT NULL DEFAULT '',
						created_at DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at)`,
					`CREATE TABLE IF NOT EXISTS chat_attachments (
						id TEXT PRIMARY KEY,
						message_id TEXT NOT NULL REFERENCES chat_messages(id) ON DELETE CASCADE,
						path TEXT NOT NULL,
						width INTEGER NOT NULL,
						height INTEGER NOT NULL,
						byte_size INTEGER NOT NULL,
						media_type TEXT NOT NULL,
						created_at DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_chat_attachments_message ON chat_attachments(message_id)`,
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
