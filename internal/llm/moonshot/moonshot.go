// Package moonshot implements llm.Provider for the Moonshot chat-completions
// API, including the hosted $web_search builtin tool.
package moonshot

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/axiom-ai/axiom/pkg/llm"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WebSearchTool is the name of Moonshot's builtin search function.
const WebSearchTool = "$web_search"

const finishToolCalls = "tool_calls"

// Compile-time interface guards.
var (
	_ llm.Provider       = (*Provider)(nil)
	_ llm.HealthReporter = (*Provider)(nil)
)

// Provider implements llm.Provider for Moonshot.
type Provider struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a Moonshot provider. The config is expected to be validated;
// zero-valued optional fields fall back to the package defaults.
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxToolRounds == 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}

	var limiter *rate.Limiter
	if cfg.RPM > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RPM)/60), 1)
	}

	return &Provider{
		cfg:        cfg,
		httpClient: &http.Client{},
		limiter:    limiter,
		logger:     logger,
	}
}

// Config returns the effective configuration, including the raw key.
// Use Config().Redacted() before exposing it.
func (p *Provider) Config() Config {
	return p.cfg
}

// Generate creates a completion from a single prompt.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.CallOption) (*llm.Response, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

// Chat creates a completion from a conversation history. With web search
// enabled the request carries the $web_search tool and tool_calls rounds
// are answered until the model produces a final message.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	if len(messages) == 0 {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}

	call := llm.ApplyOptions(opts...)

	search := p.cfg.EnableWebSearch
	if call.WebSearch != nil {
		search = *call.WebSearch
	}

	model := call.Model
	if model == "" {
		model = p.cfg.Model
		if search && p.cfg.SearchModel != "" {
			model = p.cfg.SearchModel
		}
	}
	if strings.TrimSpace(p.cfg.APIKey) == "" || model == "" || p.cfg.Model == "" {
		return nil, llm.NewProviderError(llm.ErrCodeNotConfigured,
			"moonshot is not configured: set MOONSHOT_API_KEY and MOONSHOT_MODEL", nil)
	}

	temperature := p.cfg.Temperature
	if call.Temperature != nil {
		temperature = *call.Temperature
	}
	maxTokens := p.cfg.MaxTokens
	if call.MaxTokens > 0 {
		maxTokens = call.MaxTokens
	}

	req := chatRequest{
		Model:       model,
		Messages:    p.toAPIMessages(messages, search),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if search {
		req.Tools = []tool{{Type: "builtin_function", Function: toolFunction{Name: WebSearchTool}}}
		req.ToolChoice = "auto"
	}

	var usage llm.Usage
	rounds := 0
	for {
		resp, err := p.completeWithRetry(ctx, &req)
		if err != nil {
			return nil, err
		}
		usage.Add(llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		})

		if len(resp.Choices) == 0 {
			return nil, llm.NewProviderError(llm.ErrCodeServerError, "moonshot returned no choices", nil)
		}
		choice := resp.Choices[0]

		if choice.FinishReason != finishToolCalls || len(choice.Message.ToolCalls) == 0 {
			respModel := resp.Model
			if respModel == "" {
				respModel = model
			}
			p.logger.Debug("moonshot chat completed",
				zap.String("model", respModel),
				zap.Int("search_rounds", rounds),
				zap.Int("total_tokens", usage.TotalTokens),
			)
			return &llm.Response{
				Content:      choice.Message.Content,
				Model:        respModel,
				Usage:        usage,
				Done:         choice.FinishReason != "length",
				FinishReason: choice.FinishReason,
				SearchRounds: rounds,
			}, nil
		}

		if rounds >= p.cfg.MaxToolRounds {
			return nil, llm.NewProviderError(llm.ErrCodeToolLoop,
				fmt.Sprintf("model kept requesting tools after %d rounds", rounds), nil)
		}
		rounds++
		searchRoundsTotal.Inc()

		req.Messages = append(req.Messages, chatMessage{
			Role:      llm.RoleAssistant,
			Content:   choice.Message.Content,
			ToolCalls: choice.Message.ToolCalls,
		})
		for _, tc := range choice.Message.ToolCalls {
			req.Messages = append(req.Messages, toolResult(tc))
		}
	}
}

// Heartbeat checks whether the Moonshot API is reachable with the
// configured credential.
func (p *Provider) Heartbeat(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

// ListModels returns the model IDs available to the configured key.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, llm.NewProviderError(llm.ErrCodeNotConfigured, "moonshot api key is not set", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.TimeoutDuration())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.Endpoint("/models"), http.NoBody)
	if err != nil {
		return nil, mapError(err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, mapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, mapError(parseStatusError(resp))
	}

	var result listResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}

	names := make([]string, len(result.Data))
	for i := range result.Data {
		names[i] = result.Data[i].ID
	}
	return names, nil
}

// completeWithRetry posts req and retries exactly once when the failure is
// transient (timeout, 429, 5xx) and the caller is still waiting.
func (p *Provider) completeWithRetry(ctx context.Context, req *chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	resp, err := p.complete(ctx, req.Model, body)
	if err == nil || !llm.IsRetryable(err) || ctx.Err() != nil {
		return resp, err
	}

	p.logger.Warn("moonshot call failed, retrying once",
		zap.String("model", req.Model),
		zap.Error(err),
	)
	return p.complete(ctx, req.Model, body)
}

// complete performs a single bounded POST to /chat/completions.
func (p *Provider) complete(ctx context.Context, model string, body []byte) (*chatResponse, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, llm.NewProviderError(llm.ErrCodeRateLimit, "outbound rate limit wait aborted", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.TimeoutDuration())
	defer cancel()

	start := time.Now()
	resp, err := p.doPost(ctx, "/chat/completions", body)
	requestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if err != nil {
		err = mapError(err)
		requestsTotal.WithLabelValues(model, outcome(err)).Inc()
		return nil, err
	}
	requestsTotal.WithLabelValues(model, "ok").Inc()
	return resp, nil
}

// doPost sends an authenticated POST request and decodes the completion.
func (p *Provider) doPost(ctx context.Context, path string, body []byte) (*chatResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint(path), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, parseStatusError(resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	return &out, nil
}

// toAPIMessages converts SDK messages to the wire form. Images on user
// messages become image_url parts carrying a data URI. When searching with
// a knowledge cutoff, a hint follows the leading system messages.
func (p *Provider) toAPIMessages(messages []llm.Message, search bool) []chatMessage {
	out := make([]chatMessage, 0, len(messages)+1)
	hint := ""
	if search && p.cfg.KnowledgeCutoff != "" {
		hint = cutoffHint(p.cfg.KnowledgeCutoff)
	}

	for _, m := range messages {
		if hint != "" && m.Role != llm.RoleSystem {
			out = append(out, chatMessage{Role: llm.RoleSystem, Content: hint})
			hint = ""
		}
		if m.Role == llm.RoleUser && len(m.Images) > 0 {
			parts := make([]contentPart, 0, len(m.Images)+1)
			if m.Content != "" {
				parts = append(parts, contentPart{Type: "text", Text: m.Content})
			}
			for _, img := range m.Images {
				parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: dataURI(img)}})
			}
			out = append(out, chatMessage{Role: m.Role, Content: parts})
			continue
		}
		out = append(out, chatMessage{Role: m.Role, Content: m.Content})
	}
	if hint != "" {
		out = append(out, chatMessage{Role: llm.RoleSystem, Content: hint})
	}
	return out
}

func cutoffHint(cutoff string) string {
	return fmt.Sprintf("Your built-in knowledge ends around %s. For events, releases or figures that may "+
		"have changed after that date, call %s before answering.", cutoff, WebSearchTool)
}

// toolResult answers a tool call. Moonshot executes $web_search itself; the
// client only echoes the arguments back so the server can continue.
func toolResult(tc toolCall) chatMessage {
	content := tc.Function.Arguments
	if tc.Function.Name != WebSearchTool {
		b, _ := json.Marshal(map[string]string{"error": "unknown tool " + tc.Function.Name})
		content = string(b)
	}
	return chatMessage{
		Role:       "tool",
		ToolCallID: tc.ID,
		Name:       tc.Function.Name,
		Content:    content,
	}
}

func dataURI(img llm.Image) string {
	mt := img.MediaType
	if mt == "" {
		mt = "image/jpeg"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// parseStatusError reads an error response body.
func parseStatusError(resp *http.Response) *statusError {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, &errResp); err != nil || errResp.Error.Message == "" {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = resp.Status
		}
		return &statusError{StatusCode: resp.StatusCode, Message: msg}
	}

	return &statusError{
		StatusCode: resp.StatusCode,
		Type:       errResp.Error.Type,
		Message:    errResp.Error.Message,
	}
}

// --- Moonshot REST API types (internal) ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Tools       []tool        `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
}

// chatMessage.Content is a string or a []contentPart.
type chatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type tool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name string `json:"name"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Role      string     `json:"role"`
			Content   string     `json:"content"`
			ToolCalls []toolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type listResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}
