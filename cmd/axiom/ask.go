package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/axiom-ai/axiom/internal/chat"
	"github.com/axiom-ai/axiom/internal/llm/moonshot"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// runAsk answers one prompt without the HTTP server or a session.
func runAsk(v *viper.Viper, logger *zap.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(stderr)
	search := fs.Bool("search", true, "allow web search (false disables it for this prompt)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if prompt == "" {
		fmt.Fprintln(stderr, `usage: axiom ask [-search=false] "prompt"`)
		return 2
	}

	// Only an explicit flag overrides the server setting.
	var override *bool
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "search" {
			override = search
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, v, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.close(closeCtx)
	}()

	res, err := a.chat.Service().Ask(ctx, prompt, override)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			fmt.Fprintln(stderr, "Message cannot be empty.")
			return 2
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	writeAnswer(stdout, res)
	return 0
}

// runMCP serves the MCP ask tool on stdin/stdout until the client hangs up
// or the process is interrupted.
func runMCP(v *viper.Viper, logger *zap.Logger, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, v, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.close(closeCtx)
	}()

	logger.Info("mcp stdio server ready")
	if err := a.mcp.RunStdio(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(stderr, "mcp server error: %v\n", err)
		return 1
	}
	return 0
}

func writeAnswer(w io.Writer, res *chat.SendResult) {
	fmt.Fprintln(w, res.AssistantMessage)
	if len(res.Sources) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for _, s := range res.Sources {
		if s.Title != "" {
			fmt.Fprintf(w, "- %s: %s\n", s.Title, s.URL)
		} else {
			fmt.Fprintf(w, "- %s\n", s.URL)
		}
	}
}

// runConfig prints the effective configuration as JSON with secrets redacted.
func runConfig(v *viper.Viper, stdout, stderr io.Writer) int {
	settings := redactSettings(v.AllSettings())
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(settings); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// redactSettings masks secrets in place: the Moonshot key keeps its
// prefix and last four characters, the rest are replaced entirely.
func redactSettings(settings map[string]any) map[string]any {
	if plugins, ok := settings["plugins"].(map[string]any); ok {
		if llm, ok := plugins["llm"].(map[string]any); ok {
			if key, ok := llm["api_key"].(string); ok {
				llm["api_key"] = moonshot.RedactKey(key)
			}
		}
		if m, ok := plugins["mcp"].(map[string]any); ok {
			mask(m, "api_key")
		}
		if m, ok := plugins["mqtt"].(map[string]any); ok {
			mask(m, "password")
		}
	}
	if auth, ok := settings["auth"].(map[string]any); ok {
		mask(auth, "jwt_secret")
	}
	return settings
}

func mask(section map[string]any, key string) {
	if s, ok := section[key].(string); ok && s != "" {
		section[key] = "********"
	}
}
