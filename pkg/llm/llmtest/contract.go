// Package llmtest provides shared contract tests that verify any
// llm.Provider implementation behaves correctly. Provider test files call
// TestProviderContract with a factory that points at either a live service
// or a scripted httptest backend.
package llmtest

import (
	"context"
	"strings"
	"testing"

	"github.com/axiom-ai/axiom/pkg/llm"
)

// TestProviderContract runs a suite of behavioral contract tests against
// any llm.Provider implementation. The backend behind the factory must
// answer arithmetic questions with the digit alone; scripted backends can
// simply always reply "4".
//
//	func TestContract(t *testing.T) {
//	    llmtest.TestProviderContract(t, func() llm.Provider { return moonshot.New(cfg, logger) })
//	}
func TestProviderContract(t *testing.T, factory func() llm.Provider) {
	t.Helper()

	t.Run("Generate_returns_non_empty_response", func(t *testing.T) {
		p := factory()
		resp, err := p.Generate(context.Background(), "Say hello in exactly three words")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if resp == nil {
			t.Fatal("Generate() returned nil response")
		}
		if resp.Content == "" {
			t.Error("Generate() returned empty content")
		}
		if resp.Model == "" {
			t.Error("Response.Model must not be empty")
		}
	})

	t.Run("Chat_with_conversation_history", func(t *testing.T) {
		p := factory()
		messages := []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a helpful assistant. Be concise."},
			{Role: llm.RoleUser, Content: "What is 2+2? Reply with just the number."},
		}
		resp, err := p.Chat(context.Background(), messages, llm.WithWebSearch(false))
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if resp == nil {
			t.Fatal("Chat() returned nil response")
		}
		if !strings.Contains(resp.Content, "4") {
			t.Errorf("Chat() response = %q, want it to contain 4", resp.Content)
		}
		if !resp.Done {
			t.Error("Chat() response should be marked done")
		}
	})

	t.Run("Chat_cancelled_context", func(t *testing.T) {
		p := factory()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: "Write a very long essay"}})
		if err == nil {
			t.Error("Chat() with cancelled context should return error")
		}
	})

	t.Run("Chat_empty_messages_returns_error", func(t *testing.T) {
		p := factory()
		_, err := p.Chat(context.Background(), nil)
		if err == nil {
			t.Error("Chat() with nil messages should return error")
		}
	})

	t.Run("HealthReporter_if_implemented", func(t *testing.T) {
		p := factory()
		hr, ok := p.(llm.HealthReporter)
		if !ok {
			t.Skip("Provider does not implement HealthReporter")
		}
		if err := hr.Heartbeat(context.Background()); err != nil {
			t.Errorf("Heartbeat() error = %v", err)
		}
		models, err := hr.ListModels(context.Background())
		if err != nil {
			t.Fatalf("ListModels() error = %v", err)
		}
		if len(models) == 0 {
			t.Error("ListModels() returned empty list")
		}
	})
}
