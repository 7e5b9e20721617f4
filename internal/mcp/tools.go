package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/axiom-ai/axiom/pkg/roles"
)

type askInput struct {
	Question  string `json:"question" jsonschema:"The question to research and answer"`
	WebSearch *bool  `json:"web_search,omitempty" jsonschema:"Set false to answer without web search; omit to use the server setting"`
}

// askOutput is the structured result of the ask tool.
type askOutput struct {
	Answer  string      `json:"answer"`
	Sources []sourceRef `json:"sources"`
}

type sourceRef struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// registerTools adds all MCP tools to the server.
func (m *Module) registerTools() {
	sdkmcp.AddTool(m.server, &sdkmcp.Tool{
		Name:        "ask",
		Description: "Ask the Axiom research assistant a question. It answers concisely, searching the web when needed, and lists the pages it cited.",
	}, m.handleAsk)
}

func (m *Module) handleAsk(ctx context.Context, req *sdkmcp.CallToolRequest, input askInput) (*sdkmcp.CallToolResult, any, error) {
	start := time.Now().UTC()
	m.publishToolCall("ask", input)

	out, err := m.ask(ctx, input)
	m.auditToolCall(ctx, "ask", input, callerOf(req), start, err)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return textResult(formatAnswer(out)), out, nil
}

func (m *Module) ask(ctx context.Context, input askInput) (askOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return askOutput{}, errors.New("question must not be empty")
	}
	var answerer roles.Answerer
	if m.answerer != nil {
		answerer = m.answerer()
	}
	if answerer == nil {
		return askOutput{}, errors.New("chat module not available")
	}
	res, err := answerer.Answer(ctx, input.Question, input.WebSearch)
	if err != nil {
		return askOutput{}, fmt.Errorf("ask failed: %w", err)
	}
	out := askOutput{Answer: res.Text, Sources: make([]sourceRef, 0, len(res.Sources))}
	for _, s := range res.Sources {
		out.Sources = append(out.Sources, sourceRef{Title: s.Title, URL: s.URL})
	}
	return out, nil
}

// callerOf labels the audit entry with the transport the call came in on.
func callerOf(req *sdkmcp.CallToolRequest) string {
	if req != nil && req.Extra != nil && req.Extra.Header != nil {
		return "http"
	}
	return "stdio"
}

// formatAnswer renders the answer followed by a Sources list, the same
// layout the CLI prints.
func formatAnswer(out askOutput) string {
	var b strings.Builder
	b.WriteString(out.Answer)
	if len(out.Sources) > 0 {
		b.WriteString("\n\nSources:")
		for _, s := range out.Sources {
			if s.Title != "" {
				fmt.Fprintf(&b, "\n- %s: %s", s.Title, s.URL)
			} else {
				fmt.Fprintf(&b, "\n- %s", s.URL)
			}
		}
	}
	return b.String()
}

func textResult(text string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{
			&sdkmcp.TextContent{Text: text},
		},
	}
}

func errorResult(msg string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{
			&sdkmcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
