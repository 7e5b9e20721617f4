// Package mcp exposes the research assistant to other AI tools over the
// Model Context Protocol, either mounted at /api/v1/mcp or on stdio.
package mcp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/axiom-ai/axiom/internal/auth"
	"github.com/axiom-ai/axiom/internal/version"
	"github.com/axiom-ai/axiom/pkg/plugin"
	"github.com/axiom-ai/axiom/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// TopicToolCalled is published after every tool invocation.
const TopicToolCalled = "mcp.tool.called"

// Module implements the MCP server module.
type Module struct {
	logger     *zap.Logger
	bus        plugin.EventBus
	answerer   func() roles.Answerer
	server     *sdkmcp.Server
	httpH      http.Handler
	apiKey     string
	auditStore *AuditStore
}

// New creates a new MCP module instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "mcp",
		Version:      "0.3.0",
		Description:  "Model Context Protocol server exposing the ask tool",
		Dependencies: []string{"chat"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.bus = deps.Bus

	if deps.Config != nil {
		m.apiKey = strings.TrimSpace(deps.Config.GetString("api_key"))
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(ctx, "mcp", migrations()); err != nil {
			return fmt.Errorf("mcp migrations: %w", err)
		}
		m.auditStore = NewAuditStore(deps.Store.DB())
	}

	m.answerer = answererResolver(deps.Plugins)

	m.logger.Info("mcp module initialized", zap.Bool("http_enabled", m.apiKey != ""))
	return nil
}

// answererResolver finds the chat role lazily; chat may be initialized
// after this module when both are registered out of order.
func answererResolver(plugins plugin.PluginResolver) func() roles.Answerer {
	return func() roles.Answerer {
		if plugins == nil {
			return nil
		}
		for _, p := range plugins.ResolveByRole(roles.RoleChat) {
			if a, ok := p.(roles.Answerer); ok {
				return a
			}
		}
		return nil
	}
}

// SetAnswerer overrides the role lookup. Tests and the stdio command use it.
func (m *Module) SetAnswerer(a roles.Answerer) {
	m.answerer = func() roles.Answerer { return a }
}

func (m *Module) Start(_ context.Context) error {
	m.server = sdkmcp.NewServer(
		&sdkmcp.Implementation{
			Name:    "axiom",
			Version: version.Short(),
		},
		nil,
	)

	m.registerTools()

	// One handler for the module lifetime; it owns the HTTP session table.
	m.httpH = sdkmcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *sdkmcp.Server { return m.server },
		nil,
	)

	m.logger.Info("mcp module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.logger != nil {
		m.logger.Info("mcp module stopped")
	}
	return nil
}

// RunStdio serves MCP on stdin/stdout until ctx is done or the client
// disconnects. Start must have been called.
func (m *Module) RunStdio(ctx context.Context) error {
	return m.run(ctx, &sdkmcp.StdioTransport{})
}

func (m *Module) run(ctx context.Context, t sdkmcp.Transport) error {
	if m.server == nil {
		return errors.New("mcp server not started")
	}
	return m.server.Run(ctx, t)
}

// Routes implements plugin.HTTPProvider.
// The MCP streamable HTTP handler is mounted at the module's route prefix.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/", Handler: m.handleMCP},
		{Method: "GET", Path: "/", Handler: m.handleMCP},
		{Method: "DELETE", Path: "/", Handler: m.handleMCP},
		{Method: "GET", Path: "/audit", Handler: m.handleAuditList},
	}
}

// authorized reports whether r carries the configured API key. MCP over
// HTTP stays closed until an api_key is set.
func (m *Module) authorized(r *http.Request) bool {
	if m.apiKey == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(m.apiKey)) == 1
}

// handleMCP wraps the MCP streamable HTTP handler with API key auth.
func (m *Module) handleMCP(w http.ResponseWriter, r *http.Request) {
	if m.apiKey == "" {
		writeError(w, http.StatusServiceUnavailable, "mcp over http is disabled: set plugins.mcp.api_key")
		return
	}
	if !m.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid mcp api key")
		return
	}
	if m.httpH == nil {
		writeError(w, http.StatusServiceUnavailable, "mcp server not started")
		return
	}
	m.httpH.ServeHTTP(w, r)
}

// handleAuditList returns paginated MCP tool call audit entries. Admin only.
//
//	@Summary		List MCP audit log entries
//	@Description	Returns paginated ask tool calls, newest first. Requires the admin role.
//	@Tags			mcp
//	@Produce		json
//	@Security		BearerAuth
//	@Param			tool_name	query		string	false	"Filter by tool name"
//	@Param			limit		query		int		false	"Page size"	default(50)
//	@Param			offset		query		int		false	"Offset"	default(0)
//	@Success		200			{object}	mcp.AuditPage
//	@Failure		403			{object}	models.APIProblem
//	@Failure		503			{object}	models.APIProblem
//	@Router			/mcp/audit [get]
func (m *Module) handleAuditList(w http.ResponseWriter, r *http.Request) {
	if !auth.RequireAdmin(w, r) {
		return
	}
	if m.auditStore == nil {
		writeError(w, http.StatusServiceUnavailable, "audit store not available")
		return
	}

	toolName := r.URL.Query().Get("tool_name")
	limit := queryInt(r, "limit", 50, 1, 500)
	offset := queryInt(r, "offset", 0, 0, -1)

	entries, total, err := m.auditStore.List(r.Context(), toolName, limit, offset)
	if err != nil {
		m.logger.Error("failed to query audit log", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query audit log")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(AuditPage{
		Entries: entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}); err != nil {
		m.logger.Error("failed to encode audit response", zap.Error(err))
	}
}

// AuditPage is one page of the audit log.
type AuditPage struct {
	Entries []AuditEntry `json:"entries"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// queryInt reads a bounded integer query parameter. max < 0 means unbounded.
func queryInt(r *http.Request, key string, def, minV, maxV int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < minV {
		return def
	}
	if maxV >= 0 && n > maxV {
		return maxV
	}
	return n
}

// publishToolCall emits an event when an MCP tool is invoked.
func (m *Module) publishToolCall(toolName string, params any) {
	if m.bus == nil {
		return
	}

	m.bus.PublishAsync(context.Background(), plugin.Event{
		Topic:     TopicToolCalled,
		Source:    "mcp",
		Timestamp: time.Now().UTC(),
		Payload: map[string]any{
			"tool":   toolName,
			"params": params,
		},
	})
}

// auditToolCall persists a tool invocation record to the audit log.
// It is a no-op when the audit store is not configured.
func (m *Module) auditToolCall(ctx context.Context, toolName string, input any, caller string, start time.Time, callErr error) {
	if m.auditStore == nil {
		return
	}
	entry := AuditEntry{
		Timestamp:  start,
		ToolName:   toolName,
		InputJSON:  writeToolJSON(input),
		Caller:     caller,
		DurationMs: time.Since(start).Milliseconds(),
		Success:    callErr == nil,
	}
	if callErr != nil {
		entry.ErrorMessage = callErr.Error()
	}
	// The request context may already be gone once the answer is written.
	if err := m.auditStore.Insert(context.WithoutCancel(ctx), entry); err != nil {
		m.logger.Warn("failed to write audit log", zap.Error(err))
	}
}

// writeToolJSON marshals v to JSON for tool responses.
func writeToolJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"failed to marshal response"}`
	}
	return string(data)
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
