// Package llm provides the public SDK types for LLM provider integrations.
// The Moonshot adapter in internal/llm/moonshot implements these interfaces;
// the chat pipeline only depends on this package.
package llm

import "context"

// Provider is the core interface implemented by LLM provider adapters.
// It exposes single-prompt generation and multi-turn chat completion.
type Provider interface {
	// Generate creates a completion from a single prompt.
	// Use CallOption values to override model, temperature, or web search.
	Generate(ctx context.Context, prompt string, opts ...CallOption) (*Response, error)

	// Chat creates a completion from a conversation history.
	// Use CallOption values to override model, temperature, or web search.
	Chat(ctx context.Context, messages []Message, opts ...CallOption) (*Response, error)
}

// HealthReporter is optionally implemented by providers that can report
// connection health and model availability. Detected via type assertion.
type HealthReporter interface {
	// Heartbeat checks whether the LLM service is reachable.
	Heartbeat(ctx context.Context) error

	// ListModels returns the names of models available from this provider.
	ListModels(ctx context.Context) ([]string, error)
}

// CallOption configures a single Generate or Chat call.
type CallOption func(*CallConfig)

// CallConfig holds the resolved configuration for a single LLM call.
// Nil pointer fields mean "use the provider's configured default".
type CallConfig struct {
	Model       string
	Temperature *float64
	MaxTokens   int
	WebSearch   *bool
}

// WithModel sets the model to use for this call, overriding the provider
// default and the search model.
func WithModel(model string) CallOption {
	return func(c *CallConfig) { c.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) CallOption {
	return func(c *CallConfig) { c.Temperature = &temp }
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(max int) CallOption {
	return func(c *CallConfig) { c.MaxTokens = max }
}

// WithWebSearch enables or disables the provider's hosted web search tool
// for this call.
func WithWebSearch(enabled bool) CallOption {
	return func(c *CallConfig) { c.WebSearch = &enabled }
}

// ApplyOptions creates a CallConfig from a list of options.
func ApplyOptions(opts ...CallOption) CallConfig {
	var cfg CallConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
