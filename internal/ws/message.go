package ws

import (
	"time"

	"github.com/axiom-ai/axiom/pkg/models"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessagePending   MessageType = "message.pending"
	MessageCompleted MessageType = "message.completed"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	MessageID string      `json:"message_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      MessageData `json:"data"`
}

// MessageData carries the assistant message state.
type MessageData struct {
	Status  models.MessageStatus `json:"status"`
	Content string               `json:"content,omitempty"`
}
