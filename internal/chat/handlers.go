package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/axiom-ai/axiom/internal/auth"
	"github.com/axiom-ai/axiom/internal/config"
	"github.com/axiom-ai/axiom/pkg/models"
	"github.com/axiom-ai/axiom/pkg/plugin"
	"go.uber.org/zap"
)

// SendBody is the JSON body of POST /chat/send. Multipart requests use
// the same field names plus an "image" file part.
type SendBody struct {
	Message   string `json:"message" example:"What changed in Go 1.25?"`
	SessionID string `json:"session_id,omitempty"`
	Search    *bool  `json:"search,omitempty"`
}

// SessionDetail is a session with its messages.
type SessionDetail struct {
	Session  *models.ChatSession  `json:"session"`
	Messages []models.ChatMessage `json:"messages"`
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/send", Handler: m.handleSend},
		{Method: "GET", Path: "/sessions", Handler: m.handleListSessions},
		{Method: "GET", Path: "/sessions/{id}", Handler: m.handleGetSession},
		{Method: "GET", Path: "/sessions/{id}/messages", Handler: m.handleListMessages},
		{Method: "DELETE", Path: "/sessions/{id}", Handler: m.handleDeleteSession},
		{Method: "GET", Path: "/attachments/{id}", Handler: m.handleGetAttachment},
	}
}

// handleSend runs one chat turn.
//
//	@Summary		Send a message
//	@Description	Sends text (JSON) or text plus an image (multipart/form-data, field "image") and returns the assistant reply. Model failures still return 200 with a fixed apology.
//	@Tags			chat
//	@Accept			json,mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		SendBody	true	"Message"
//	@Success		200		{object}	SendResult
//	@Failure		400		{object}	models.APIProblem
//	@Failure		401		{object}	models.APIProblem
//	@Failure		404		{object}	models.APIProblem
//	@Router			/chat/send [post]
func (m *Module) handleSend(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	req, ok := m.decodeSend(w, r)
	if !ok {
		return
	}
	req.UserID = claims.UserID

	res, err := m.service.Send(r.Context(), req)
	switch {
	case errors.Is(err, ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "Message cannot be empty.")
	case errors.Is(err, ErrImageTooLarge):
		writeError(w, http.StatusBadRequest, "Image is too large (max 4MB).")
	case errors.Is(err, ErrImageDimensions):
		writeError(w, http.StatusBadRequest, "Image dimensions are too large (max 40 megapixels).")
	case errors.Is(err, ErrInvalidImage):
		writeError(w, http.StatusBadRequest, "Invalid image file.")
	case errors.Is(err, ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case err != nil:
		m.logger.Error("chat send failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to send message")
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (m *Module) decodeSend(w http.ResponseWriter, r *http.Request) (SendRequest, bool) {
	// Room for the image plus form fields.
	r.Body = http.MaxBytesReader(w, r.Body, m.cfg.MaxImageBytes+1<<20)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		var body SendBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return SendRequest{}, false
		}
		return SendRequest{SessionID: body.SessionID, Text: body.Message, WebSearch: body.Search}, true
	}

	if err := r.ParseMultipartForm(m.cfg.MaxImageBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusBadRequest, "Image is too large (max 4MB).")
			return SendRequest{}, false
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return SendRequest{}, false
	}
	req := SendRequest{
		SessionID: r.FormValue("session_id"),
		Text:      r.FormValue("message"),
	}
	if v := r.FormValue("search"); v != "" {
		b, err := config.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "search must be a boolean (true/false, yes/no, on/off, 1/0)")
			return SendRequest{}, false
		}
		req.WebSearch = &b
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid image file.")
		return SendRequest{}, false
	}
	defer file.Close()

	// Read one byte past the limit so oversize uploads are detectable.
	data, err := io.ReadAll(io.LimitReader(file, m.cfg.MaxImageBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid image file.")
		return SendRequest{}, false
	}
	req.Image = data
	return req, true
}

// handleListSessions returns the caller's recent sessions.
//
//	@Summary		List sessions
//	@Tags			chat
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		models.ChatSession
//	@Failure		401	{object}	models.APIProblem
//	@Router			/chat/sessions [get]
func (m *Module) handleListSessions(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	sessions, err := m.service.Store().ListSessions(r.Context(), claims.UserID, m.cfg.SessionLimit)
	if err != nil {
		m.logger.Error("list sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// handleGetSession returns a session with its messages.
//
//	@Summary		Get session
//	@Tags			chat
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	SessionDetail
//	@Failure		404	{object}	models.APIProblem
//	@Router			/chat/sessions/{id} [get]
func (m *Module) handleGetSession(w http.ResponseWriter, r *http.Request) {
	detail, ok := m.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleListMessages returns a session's messages with status and
// attachment URLs. Clients poll it while a reply is pending.
//
//	@Summary		List messages
//	@Tags			chat
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Session ID"
//	@Success		200	{array}	models.ChatMessage
//	@Failure		404	{object}	models.APIProblem
//	@Router			/chat/sessions/{id}/messages [get]
func (m *Module) handleListMessages(w http.ResponseWriter, r *http.Request) {
	detail, ok := m.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, detail.Messages)
}

func (m *Module) loadSession(w http.ResponseWriter, r *http.Request) (*SessionDetail, bool) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	store := m.service.Store()
	sess, err := store.GetSession(r.Context(), claims.UserID, r.PathValue("id"))
	if errors.Is(err, ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		m.logger.Error("get session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	msgs, err := store.ListMessages(r.Context(), sess.ID)
	if err != nil {
		m.logger.Error("list messages failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return nil, false
	}
	return &SessionDetail{Session: sess, Messages: msgs}, true
}

// handleDeleteSession deletes a session, its messages and attachments.
//
//	@Summary		Delete session
//	@Tags			chat
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Session ID"
//	@Success		204	"No Content"
//	@Failure		404	{object}	models.APIProblem
//	@Router			/chat/sessions/{id} [delete]
func (m *Module) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	err := m.service.DeleteSession(r.Context(), claims.UserID, r.PathValue("id"))
	if errors.Is(err, ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		m.logger.Error("delete session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetAttachment serves an uploaded image.
//
//	@Summary		Get attachment
//	@Tags			chat
//	@Produce		jpeg
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Attachment ID"
//	@Success		200	{file}	binary
//	@Failure		404	{object}	models.APIProblem
//	@Router			/chat/attachments/{id} [get]
func (m *Module) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	att, err := m.service.Store().GetAttachment(r.Context(), claims.UserID, r.PathValue("id"))
	if errors.Is(err, ErrAttachmentNotFound) {
		writeError(w, http.StatusNotFound, "attachment not found")
		return
	}
	if err != nil {
		m.logger.Error("get attachment failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load attachment")
		return
	}
	w.Header().Set("Content-Type", att.MediaType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	http.ServeFile(w, r, att.Path)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://axiom.dev/problems/" + http.StatusText(status),
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
