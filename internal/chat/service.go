package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/axiom-ai/axiom/pkg/llm"
	"github.com/axiom-ai/axiom/pkg/models"
	"github.com/axiom-ai/axiom/pkg/plugin"
	"github.com/axiom-ai/axiom/pkg/roles"
	"go.uber.org/zap"
)

// ErrEmptyMessage is returned when a send carries neither text nor image.
var ErrEmptyMessage = errors.New("message cannot be empty")

// SendRequest is one user turn.
type SendRequest struct {
	UserID    string
	SessionID string // empty starts a new session
	Text      string
	Image     []byte // raw upload, nil for text prompts
	// WebSearch set to false turns hosted search off for this turn. It
	// cannot turn search on when the server has it disabled.
	WebSearch *bool
}

// SendResult is the reply to a send.
type SendResult struct {
	SessionID        string              `json:"session_id"`
	MessageID        string              `json:"message_id"`
	AssistantMessage string              `json:"assistant_message"`
	Sources          []models.ChatSource `json:"sources"`
}

// Service runs the send pipeline.
type Service struct {
	store  *Store
	cfg    Config
	llm    roles.LLMProvider
	search func() roles.SearchProvider
	bus    plugin.EventBus
	logger *zap.Logger
}

// NewService wires a Service. search may be nil or return nil when no
// search module is loaded; bus may be nil.
func NewService(store *Store, cfg Config, provider roles.LLMProvider, search func() roles.SearchProvider, bus plugin.EventBus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if search == nil {
		search = func() roles.SearchProvider { return nil }
	}
	return &Service{store: store, cfg: cfg, llm: provider, search: search, bus: bus, logger: logger}
}

// Store exposes the session store to the HTTP handlers.
func (s *Service) Store() *Store { return s.store }

// Send stores the user's message, produces an assistant reply and stores
// that too. Model failures never surface as errors: the reply becomes a
// fixed apology instead.
func (s *Service) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" && len(req.Image) == 0 {
		return nil, ErrEmptyMessage
	}

	// Reject bad uploads before anything is written.
	var img *ProcessedImage
	if len(req.Image) > 0 {
		var err error
		img, err = ProcessImage(req.Image, s.cfg.MaxImageBytes, s.cfg.MaxImageEdge, s.cfg.JPEGQuality)
		if err != nil {
			return nil, err
		}
	}

	session, err := s.resolveSession(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.store.AddMessage(ctx, session.ID, models.RoleUser, text)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchSession(ctx, session.ID, Title(text)); err != nil {
		return nil, err
	}
	if img != nil {
		if err := s.saveAttachment(ctx, userMsg.ID, img); err != nil {
			return nil, err
		}
	}

	normalized := Normalize(text)
	if img == nil {
		if IsSmalltalk(normalized) {
			return s.reply(ctx, req.UserID, session.ID, GreetingReply)
		}
		if answer := IdentityAnswer(normalized); answer != "" {
			return s.reply(ctx, req.UserID, session.ID, answer)
		}
	}

	pending, err := s.store.AddMessage(ctx, session.ID, models.RoleAssistant, "")
	if err != nil {
		return nil, err
	}
	s.publish(ctx, TopicMessagePending, req.UserID, pending)

	// The answer is persisted even if the caller goes away; websocket
	// clients still receive it.
	ctx = context.WithoutCancel(ctx)

	var (
		content string
		sources []models.ChatSource
	)
	if img != nil {
		content, sources, err = s.answerImage(ctx, text, img)
	} else {
		content, sources, err = s.answerText(ctx, session.ID, text, req.WebSearch)
	}
	if err != nil {
		s.logger.Warn("model call failed", zap.String("session_id", session.ID), zap.Error(err))
		content, sources = fallbackReply(err), nil
	}
	content = StripSources(content)

	if err := s.store.SetMessageContent(ctx, pending.ID, content); err != nil {
		return nil, err
	}
	if err := s.store.TouchSession(ctx, session.ID, ""); err != nil {
		return nil, err
	}
	pending.Content, pending.Status = content, models.StatusOf(models.RoleAssistant, content)
	s.publish(ctx, TopicMessageCompleted, req.UserID, pending)

	return &SendResult{
		SessionID:        session.ID,
		MessageID:        pending.ID,
		AssistantMessage: content,
		Sources:          nonNil(sources),
	}, nil
}

func (s *Service) resolveSession(ctx context.Context, userID, sessionID string) (*models.ChatSession, error) {
	if sessionID == "" {
		return s.store.CreateSession(ctx, userID)
	}
	return s.store.GetSession(ctx, userID, sessionID)
}

// reply stores a canned assistant message without calling the model.
func (s *Service) reply(ctx context.Context, userID, sessionID, content string) (*SendResult, error) {
	msg, err := s.store.AddMessage(ctx, sessionID, models.RoleAssistant, content)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchSession(ctx, sessionID, ""); err != nil {
		return nil, err
	}
	s.publish(ctx, TopicMessageCompleted, userID, msg)
	return &SendResult{
		SessionID:        sessionID,
		MessageID:        msg.ID,
		AssistantMessage: content,
		Sources:          []models.ChatSource{},
	}, nil
}

func (s *Service) answerText(ctx context.Context, sessionID, text string, override *bool) (string, []models.ChatSource, error) {
	history, err := s.store.RecentMessages(ctx, sessionID, s.cfg.HistoryLimit)
	if err != nil {
		return "", nil, err
	}
	turns := make([]llm.Message, 0, len(history))
	for _, m := range history {
		// Skips the pending placeholder and image-only turns.
		if m.Content == "" {
			continue
		}
		turns = append(turns, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return s.complete(ctx, turns, text, override)
}

// Ask answers a single prompt without touching the session store.
func (s *Service) Ask(ctx context.Context, text string, webSearch *bool) (*SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	normalized := Normalize(text)
	if IsSmalltalk(normalized) {
		return &SendResult{AssistantMessage: GreetingReply, Sources: []models.ChatSource{}}, nil
	}
	if answer := IdentityAnswer(normalized); answer != "" {
		return &SendResult{AssistantMessage: answer, Sources: []models.ChatSource{}}, nil
	}

	content, sources, err := s.complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: text}}, text, webSearch)
	if err != nil {
		return nil, err
	}
	return &SendResult{AssistantMessage: StripSources(content), Sources: nonNil(sources)}, nil
}

// complete sends the system prompt, optional web context and turns to
// the model. text is the query used for external web context.
func (s *Service) complete(ctx context.Context, turns []llm.Message, text string, override *bool) (string, []models.ChatSource, error) {
	provider, defaults, err := s.provider()
	if err != nil {
		return "", nil, err
	}

	search := defaults.EnableWebSearch && (override == nil || *override)

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: SystemPrompt}}
	var sources []models.ChatSource
	if !search {
		block, found := s.webContext(ctx, text)
		if block != "" {
			msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: block})
			sources = found
		}
	}
	msgs = append(msgs, turns...)

	resp, err := provider.Chat(ctx, msgs, llm.WithWebSearch(search))
	if err != nil {
		return "", nil, err
	}
	s.logger.Debug("text answer",
		zap.String("model", resp.Model),
		zap.Bool("web_search", search),
		zap.Int("search_rounds", resp.SearchRounds),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Content, sources, nil
}

// answerImage describes the image first, then answers with the
// description and the image attached. Hosted search stays off.
func (s *Service) answerImage(ctx context.Context, text string, img *ProcessedImage) (string, []models.ChatSource, error) {
	provider, _, err := s.provider()
	if err != nil {
		return "", nil, err
	}
	image := llm.Image{MediaType: img.MediaType, Data: img.Data}

	description := s.describe(ctx, provider, text, image)

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: SystemPrompt}}
	var sources []models.ChatSource
	if description != "" {
		query := strings.TrimSpace(text + " " + description)
		if block, found := s.webContext(ctx, query); block != "" {
			msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: block})
			sources = found
		}
	}

	var parts []string
	if text != "" {
		parts = append(parts, text)
	}
	if description != "" {
		parts = append(parts, "Image summary: "+description)
	}
	msgs = append(msgs, llm.Message{
		Role:    llm.RoleUser,
		Content: strings.Join(parts, "\n"),
		Images:  []llm.Image{image},
	})

	resp, err := provider.Chat(ctx, msgs, llm.WithWebSearch(false))
	if err != nil {
		return "", nil, err
	}
	return resp.Content, sources, nil
}

// describe runs the vision pass. A failure only costs the description.
func (s *Service) describe(ctx context.Context, provider llm.Provider, text string, image llm.Image) string {
	prompt := text
	if prompt == "" {
		prompt = "Describe the image."
	}
	resp, err := provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: visionPrompt},
		{Role: llm.RoleUser, Content: prompt, Images: []llm.Image{image}},
	}, llm.WithWebSearch(false))
	if err != nil {
		s.logger.Warn("image description failed", zap.Error(err))
		return ""
	}
	return truncateRunes(strings.TrimSpace(resp.Content), s.cfg.VisionChars)
}

func (s *Service) webContext(ctx context.Context, query string) (string, []models.ChatSource) {
	sp := s.search()
	if sp == nil {
		return "", nil
	}
	block, found := sp.WebContext(ctx, query)
	if block == "" {
		return "", nil
	}
	sources := make([]models.ChatSource, len(found))
	for i, src := range found {
		sources[i] = models.ChatSource{Title: src.Title, URL: src.URL, Snippet: src.Snippet}
	}
	return block, sources
}

func (s *Service) provider() (llm.Provider, roles.LLMDefaults, error) {
	if s.llm == nil {
		return nil, roles.LLMDefaults{}, llm.NewProviderError(llm.ErrCodeNotConfigured, "no llm module loaded", nil)
	}
	p := s.llm.Provider()
	if p == nil {
		return nil, roles.LLMDefaults{}, llm.NewProviderError(llm.ErrCodeNotConfigured, "llm module not initialized", nil)
	}
	return p, s.llm.Defaults(), nil
}

func (s *Service) saveAttachment(ctx context.Context, messageID string, img *ProcessedImage) error {
	if err := os.MkdirAll(s.cfg.AttachmentsDir, 0o750); err != nil {
		return fmt.Errorf("create attachments dir: %w", err)
	}
	att := &models.ChatAttachment{
		MessageID: messageID,
		Width:     img.Width,
		Height:    img.Height,
		ByteSize:  int64(len(img.Data)),
		MediaType: img.MediaType,
	}
	att.Path = filepath.Join(s.cfg.AttachmentsDir, messageID+".jpg")
	if err := os.WriteFile(att.Path, img.Data, 0o640); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}
	if err := s.store.AddAttachment(ctx, att); err != nil {
		_ = os.Remove(att.Path)
		return err
	}
	return nil
}

// DeleteSession removes a session and its attachment files.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	paths, err := s.store.DeleteSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("remove attachment file", zap.String("path", p), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, topic, userID string, msg *models.ChatMessage) {
	if s.bus == nil {
		return
	}
	_ = s.bus.Publish(ctx, plugin.Event{
		Topic:  topic,
		Source: "chat",
		Payload: models.ChatMessageEvent{
			UserID:    userID,
			SessionID: msg.SessionID,
			MessageID: msg.ID,
			Status:    msg.Status,
			Content:   msg.Content,
		},
	})
}

func fallbackReply(err error) string {
	if llm.IsNotConfiguredError(err) {
		return NotConfiguredReply
	}
	return UnavailableReply
}

func nonNil(s []models.ChatSource) []models.ChatSource {
	if s == nil {
		return []models.ChatSource{}
	}
	return s
}
