// Package search gathers web context for prompts from an external MCP
// search server (duckduckgo-mcp-server by default). It is used when the
// model's hosted $web_search tool is turned off.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/axiom-ai/axiom/internal/version"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Tool names exposed by duckduckgo-mcp-server.
const (
	SearchTool = "search"
	FetchTool  = "fetch_content"
)

// Config holds the plugins.search settings.
type Config struct {
	Enabled    bool          `mapstructure:"enabled"`
	Command    string        `mapstructure:"command"`
	Args       string        `mapstructure:"args"`
	MaxResults int           `mapstructure:"max_results"`
	MaxFetch   int           `mapstructure:"max_fetch"`
	FetchChars int           `mapstructure:"fetch_chars"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Command:    "duckduckgo-mcp-server",
		Args:       "--stdio",
		MaxResults: 6,
		MaxFetch:   2,
		FetchChars: 1500,
		Timeout:    30 * time.Second,
	}
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Enabled && strings.TrimSpace(c.Command) == "":
		return fmt.Errorf("search command is required when search is enabled")
	case !validArgs(c.Args):
		return fmt.Errorf("args is not a valid JSON string list: %q", c.Args)
	case c.MaxResults <= 0:
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	case c.MaxFetch < 0:
		return fmt.Errorf("max_fetch must not be negative, got %d", c.MaxFetch)
	case c.FetchChars <= 0:
		return fmt.Errorf("fetch_chars must be positive, got %d", c.FetchChars)
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// CommandArgs splits Args for the server command. A value starting with
// "[" is a JSON list of strings, which allows arguments containing spaces;
// anything else is split on whitespace.
func (c Config) CommandArgs() []string {
	args := strings.TrimSpace(c.Args)
	if strings.HasPrefix(args, "[") {
		var list []string
		if err := json.Unmarshal([]byte(args), &list); err == nil {
			return list
		}
	}
	return strings.Fields(args)
}

func validArgs(raw string) bool {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") {
		return true
	}
	var list []string
	return json.Unmarshal([]byte(raw), &list) == nil
}

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Excerpt is page content fetched for a result.
type Excerpt struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Outcome is what a single Search call found.
type Outcome struct {
	Results []Result
	Fetched []Excerpt
}

// Client runs searches against an MCP server. Each Search opens its own
// session, so a crashed server only costs one query.
type Client struct {
	cfg       Config
	logger    *zap.Logger
	transport func() mcp.Transport
}

// NewClient returns a client that spawns cfg.Command over stdio.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	return newWithTransport(cfg, logger, func() mcp.Transport {
		return &mcp.CommandTransport{
			Command: exec.Command(cfg.Command, cfg.CommandArgs()...), //nolint:gosec // command comes from operator config
		}
	})
}

func newWithTransport(cfg Config, logger *zap.Logger, transport func() mcp.Transport) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: logger, transport: transport}
}

// Search queries the server and fetches content for the top results.
// A failed fetch is logged and skipped; a failed search is returned.
func (c *Client) Search(ctx context.Context, query string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "axiom", Version: version.Short()}, nil)
	session, err := client.Connect(ctx, c.transport(), nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("search: connect: %w", err)
	}
	defer session.Close()

	raw, err := callText(ctx, session, SearchTool, map[string]any{"query": query})
	if err != nil {
		return Outcome{}, err
	}
	c.logger.Debug("mcp search result", zap.String("query", query), zap.Int("bytes", len(raw)))

	var out Outcome
	out.Results = ParseResults(raw)
	if len(out.Results) > c.cfg.MaxResults {
		out.Results = out.Results[:c.cfg.MaxResults]
	}

	for i, r := range out.Results {
		if i >= c.cfg.MaxFetch {
			break
		}
		content, err := callText(ctx, session, FetchTool, map[string]any{"url": r.URL})
		if err != nil {
			c.logger.Warn("mcp fetch failed", zap.String("url", r.URL), zap.Error(err))
			continue
		}
		out.Fetched = append(out.Fetched, Excerpt{URL: r.URL, Content: truncate(content, c.cfg.FetchChars)})
	}
	return out, nil
}

func callText(ctx context.Context, session *mcp.ClientSession, tool string, args map[string]any) (string, error) {
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("search: call %s: %w", tool, err)
	}
	text := resultText(res)
	if res.IsError {
		return "", fmt.Errorf("search: %s failed: %s", tool, text)
	}
	return text, nil
}

// resultText prefers the text parts; servers that only send structured
// content get it re-encoded as JSON.
func resultText(res *mcp.CallToolResult) string {
	var texts []string
	for _, item := range res.Content {
		if tc, ok := item.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	if len(texts) == 0 && res.StructuredContent != nil {
		if b, err := json.Marshal(res.StructuredContent); err == nil {
			return string(b)
		}
	}
	return strings.Join(texts, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
