// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"github.com/axiom-ai/axiom/pkg/models"
)

// NewAttachment returns an unsaved JPEG attachment for messageID.
// Override individual fields with options.
func NewAttachment(messageID string, opts ...func(*models.ChatAttachment)) *models.ChatAttachment {
	a := &models.ChatAttachment{
		MessageID: messageID,
		Path:      "/tmp/" + messageID + ".jpg",
		Width:     640,
		Height:    480,
		ByteSize:  48_213,
		MediaType: "image/jpeg",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithPath sets the attachment file path.
func WithPath(path string) func(*models.ChatAttachment) {
	return func(a *models.ChatAttachment) { a.Path = path }
}

// WithSize sets the attachment dimensions.
func WithSize(width, height int) func(*models.ChatAttachment) {
	return func(a *models.ChatAttachment) { a.Width, a.Height = width, height }
}

// NewMessageEvent returns a completed-message event owned by userID.
func NewMessageEvent(userID string, opts ...func(*models.ChatMessageEvent)) models.ChatMessageEvent {
	e := models.ChatMessageEvent{
		UserID:    userID,
		SessionID: "s1",
		MessageID: "m1",
		Status:    models.MessageStatusComplete,
		Content:   "Answer.",
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Pending turns the event into a placeholder with no content.
func Pending() func(*models.ChatMessageEvent) {
	return func(e *models.ChatMessageEvent) {
		e.Status = models.MessageStatusPending
		e.Content = ""
	}
}

// WithContent sets the event content.
func WithContent(content string) func(*models.ChatMessageEvent) {
	return func(e *models.ChatMessageEvent) { e.Content = content }
}
