// Package ws pushes live chat message events to browsers over WebSocket.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/axiom-ai/axiom/internal/auth"
	"github.com/axiom-ai/axiom/internal/chat"
	"github.com/axiom-ai/axiom/pkg/models"
	"github.com/axiom-ai/axiom/pkg/plugin"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Handler provides the chat event stream.
type Handler struct {
	hub         *Hub
	tokens      *auth.TokenService
	logger      *zap.Logger
	unsubscribe func()
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to chat events.
func NewHandler(tokens *auth.TokenService, bus plugin.EventBus, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		hub:    NewHub(logger),
		tokens: tokens,
		logger: logger,
	}
	if bus != nil {
		h.unsubscribe = bus.Subscribe("chat.message.*", h.handleChatEvent)
		logger.Info("subscribed to chat message events for WebSocket delivery")
	}
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/chat", h.handleChatStream)
}

// Close stops forwarding bus events.
func (h *Handler) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
}

// handleChatStream upgrades the connection and streams the caller's
// message events.
func (h *Handler) handleChatStream(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on WebSocket handshakes; the access token
	// travels in the query string.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token parameter", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin is not checked; the JWT authenticates the caller.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		userID: claims.UserID,
		send:   make(chan Message, 256),
		logger: h.logger,
	}
	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until the client disconnects.
	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

func (h *Handler) handleChatEvent(_ context.Context, event plugin.Event) {
	payload, ok := event.Payload.(models.ChatMessageEvent)
	if !ok {
		return
	}

	var typ MessageType
	switch event.Topic {
	case chat.TopicMessagePending:
		typ = MessagePending
	case chat.TopicMessageCompleted:
		typ = MessageCompleted
	default:
		return
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	h.hub.SendToUser(payload.UserID, Message{
		Type:      typ,
		SessionID: payload.SessionID,
		MessageID: payload.MessageID,
		Timestamp: ts,
		Data: MessageData{
			Status:  payload.Status,
			Content: payload.Content,
		},
	})
}
