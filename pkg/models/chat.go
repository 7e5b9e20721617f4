package models

import "time"

// MessageRole is the author of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MessageStatus is derived from content: an assistant message with no
// content yet is still waiting on the model.
type MessageStatus string

const (
	MessageStatusPending  MessageStatus = "pending"
	MessageStatusComplete MessageStatus = "complete"
)

// ChatSession is one conversation owned by a user.
type ChatSession struct {
	ID        string    `json:"id" example:"5f0c8a8e-3a4b-4f57-9d0e-2b8c1f1d2e3a"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title" example:"What changed in Go 1.25?"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is a single turn in a session.
type ChatMessage struct {
	ID          string           `json:"id"`
	SessionID   string           `json:"session_id"`
	Role        MessageRole      `json:"role" example:"user"`
	Content     string           `json:"content"`
	Status      MessageStatus    `json:"status" example:"complete"`
	CreatedAt   time.Time        `json:"created_at"`
	Attachments []ChatAttachment `json:"attachments,omitempty"`
}

// ChatAttachment is an image stored alongside a user message.
type ChatAttachment struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	Path      string    `json:"-"`
	URL       string    `json:"url" example:"/api/v1/chat/attachments/9b2e"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	ByteSize  int64     `json:"byte_size"`
	MediaType string    `json:"media_type" example:"image/jpeg"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusOf reports whether a message is still pending.
func StatusOf(role MessageRole, content string) MessageStatus {
	if role == RoleAssistant && content == "" {
		return MessageStatusPending
	}
	return MessageStatusComplete
}

// ChatSource is a web page cited for an answer.
type ChatSource struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// ChatMessageEvent is the payload of the chat.message.* bus topics.
type ChatMessageEvent struct {
	UserID    string        `json:"-"`
	SessionID string        `json:"session_id"`
	MessageID string        `json:"message_id"`
	Status    MessageStatus `json:"status"`
	Content   string        `json:"content,omitempty"`
}
