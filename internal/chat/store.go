package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/axiom-ai/axiom/pkg/models"
	"github.com/google/uuid"
)

// ErrSessionNotFound covers both unknown sessions and sessions owned by
// someone else.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// Store persists chat sessions, messages and attachment metadata.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a Store on an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// CreateSession starts an empty, untitled session for userID.
func (s *Store) CreateSession(ctx context.Context, userID string) (*models.ChatSession, error) {
	now := s.now()
	sess := &models.ChatSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, '', ?, ?)`,
		sess.ID, sess.UserID, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// GetSession returns a session if userID owns it.
func (s *Store) GetSession(ctx context.Context, userID, id string) (*models.ChatSession, error) {
	var sess models.ChatSession
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&sess.ID, &sess.UserID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// ListSessions returns the user's most recently updated sessions.
func (s *Store) ListSessions(ctx context.Context, userID string, limit int) ([]models.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions WHERE user_id = ?
		ORDER BY updated_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []models.ChatSession
	for rows.Next() {
		var sess models.ChatSession
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// TouchSession bumps updated_at and sets the title if it is still empty.
func (s *Store) TouchSession(ctx context.Context, id, title string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chat_sessions
		SET updated_at = ?, title = CASE WHEN title = '' THEN ? ELSE title END
		WHERE id = ?`, s.now(), title, id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// DeleteSession removes a session with its messages and attachment rows
// and returns the attachment file paths so the caller can remove them.
func (s *Store) DeleteSession(ctx context.Context, userID, id string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT a.path FROM chat_attachments a
		JOIN chat_messages m ON m.id = a.message_id
		JOIN chat_sessions s ON s.id = m.session_id
		WHERE s.id = ? AND s.user_id = ?`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("list attachment paths: %w", err)
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, err
		}
		paths = append(paths, p)
	}
	rows.Close()

	res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrSessionNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return paths, nil
}

// AddMessage appends a message to a session.
func (s *Store) AddMessage(ctx context.Context, sessionID string, role models.MessageRole, content string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Status:    models.StatusOf(role, content),
		CreatedAt: s.now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}
	return msg, nil
}

// SetMessageContent fills in a pending assistant message.
func (s *Store) SetMessageContent(ctx context.Context, id, content string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE chat_messages SET content = ? WHERE id = ?`, content, id)
	if err != nil {
		return fmt.Errorf("set message content: %w", err)
	}
	return nil
}

// ListMessages returns every message of a session in order, with
// attachments.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	msgs, err := s.queryMessages(ctx, `
		SELECT id, session_id, role, content, created_at FROM chat_messages
		WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return msgs, nil
	}

	atts, err := s.sessionAttachments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].Attachments = atts[msgs[i].ID]
	}
	return msgs, nil
}

// RecentMessages returns the last limit messages of a session, oldest first.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	return s.queryMessages(ctx, `
		SELECT id, session_id, role, content, created_at FROM (
			SELECT id, session_id, role, content, created_at, rowid AS seq FROM chat_messages
			WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?
		) ORDER BY created_at, seq`, sessionID, limit)
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []models.ChatMessage{}
	for rows.Next() {
		var (
			m    models.ChatMessage
			role string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = models.MessageRole(role)
		m.Status = models.StatusOf(m.Role, m.Content)
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddAttachment records an image stored for a message.
func (s *Store) AddAttachment(ctx context.Context, a *models.ChatAttachment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_attachments (id, message_id, path, width, height, byte_size, media_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.MessageID, a.Path, a.Width, a.Height, a.ByteSize, a.MediaType, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add attachment: %w", err)
	}
	a.URL = attachmentURL(a.ID)
	return nil
}

// GetAttachment returns an attachment if userID owns its session.
func (s *Store) GetAttachment(ctx context.Context, userID, id string) (*models.ChatAttachment, error) {
	var a models.ChatAttachment
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.message_id, a.path, a.width, a.height, a.byte_size, a.media_type, a.created_at
		FROM chat_attachments a
		JOIN chat_messages m ON m.id = a.message_id
		JOIN chat_sessions s ON s.id = m.session_id
		WHERE a.id = ? AND s.user_id = ?`, id, userID,
	).Scan(&a.ID, &a.MessageID, &a.Path, &a.Width, &a.Height, &a.ByteSize, &a.MediaType, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	a.URL = attachmentURL(a.ID)
	return &a, nil
}

func (s *Store) sessionAttachments(ctx context.Context, sessionID string) (map[string][]models.ChatAttachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.message_id, a.path, a.width, a.height, a.byte_size, a.media_type, a.created_at
		FROM chat_attachments a
		JOIN chat_messages m ON m.id = a.message_id
		WHERE m.session_id = ? ORDER BY a.created_at, a.rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.ChatAttachment)
	for rows.Next() {
		var a models.ChatAttachment
		if err := rows.Scan(&a.ID, &a.MessageID, &a.Path, &a.Width, &a.Height, &a.ByteSize, &a.MediaType, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		a.URL = attachmentURL(a.ID)
		out[a.MessageID] = append(out[a.MessageID], a)
	}
	return out, rows.Err()
}

func attachmentURL(id string) string {
	return "/api/v1/chat/attachments/" + id
}
