// Package roles defines typed contracts for module roles.
// Modules that fill a role (declared via PluginInfo.Roles) implement the
// corresponding interface so callers can use type-safe access via
// PluginResolver.ResolveByRole followed by a type assertion.
package roles

import (
	"context"

	"github.com/axiom-ai/axiom/pkg/llm"
)

// Role name constants match the strings used in PluginInfo.Roles.
const (
	RoleLLM    = "llm"
	RoleChat   = "chat"
	RoleSearch = "search"
)

// LLMProvider is implemented by modules that provide LLM capabilities.
// Resolve via PluginResolver.ResolveByRole(RoleLLM) then type-assert.
type LLMProvider interface {
	// Provider returns the underlying LLM provider interface.
	Provider() llm.Provider

	// Defaults reports the effective per-call defaults the chat pipeline
	// needs to pick models: whether web search is on and which model
	// serves search and vision calls.
	Defaults() LLMDefaults
}

// LLMDefaults is the subset of the provider configuration that callers
// outside the llm module are allowed to see. It never carries the API key.
type LLMDefaults struct {
	Model           string
	SearchModel     string
	EnableWebSearch bool
	Configured      bool
}

// SearchProvider is implemented by modules that gather web context for a
// prompt outside the model's own tools.
type SearchProvider interface {
	// WebContext returns a system-message block describing what was found
	// and the sources it lists. An empty block means nothing usable.
	WebContext(ctx context.Context, query string) (block string, sources []Source)
}

// Source is a single web result cited to the user.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Answerer is implemented by the chat module. It answers a single prompt
// outside any session, for callers such as the MCP server.
type Answerer interface {
	// Answer runs the prompt through the send pipeline without storing it.
	// A nil webSearch keeps the server setting.
	Answer(ctx context.Context, prompt string, webSearch *bool) (Answer, error)
}

// Answer is the assistant reply to a one-off prompt.
type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}
