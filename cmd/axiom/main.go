package main

//	@title						Axiom API
//	@version					0.3.0
//	@description				Research assistant API: chat sessions answered by Moonshot with optional web search.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/axiom-ai/axiom/api/swagger"
	"github.com/axiom-ai/axiom/internal/auth"
	"github.com/axiom-ai/axiom/internal/server"
	"github.com/axiom-ai/axiom/internal/version"
	"github.com/axiom-ai/axiom/internal/ws"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const usage = `Usage: axiom [-config file] [-env file] <command> [args]

Commands:
  serve                      run the HTTP server (default)
  ask [-search=false] TEXT   answer one prompt on stdout
  config                     print the effective configuration
  mcp                        serve the ask tool over MCP on stdio
  version                    print version information
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses the global flags and dispatches the subcommand. It returns
// the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("axiom", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "path to configuration file")
	envPath := fs.String("env", ".env", "dotenv file loaded before the configuration (ignored if missing)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cmd, rest := "serve", fs.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	switch cmd {
	case "version":
		fmt.Fprintln(stdout, version.Info())
		return 0
	case "serve", "ask", "config", "mcp":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	v, logger, err := loadSettings(*configPath, *envPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	switch cmd {
	case "ask":
		return runAsk(v, logger, rest, stdout, stderr)
	case "config":
		return runConfig(v, stdout, stderr)
	case "mcp":
		return runMCP(v, logger, stderr)
	}
	if err := runServe(v, logger); err != nil {
		logger.Error("server failed", zap.Error(err))
		return 1
	}
	return 0
}

func runServe(v *viper.Viper, logger *zap.Logger) error {
	logger.Info("Axiom server starting", zap.String("version", version.Short()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, v, logger)
	if err != nil {
		return err
	}

	var srvCfg server.Config
	if err := a.cfg.Sub("server").Unmarshal(&srvCfg); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	// Auth
	authStore, err := auth.NewUserStore(ctx, a.db)
	if err != nil {
		return fmt.Errorf("auth store: %w", err)
	}

	jwtSecret := v.GetString("auth.jwt_secret")
	if jwtSecret == "" {
		// Ephemeral secret: tokens won't survive restarts.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("generate JWT secret: %w", err)
		}
		jwtSecret = hex.EncodeToString(b)
		logger.Info("using auto-generated JWT secret (set auth.jwt_secret to keep sessions across restarts)",
			zap.String("component", "auth"),
		)
	}

	accessTTL := v.GetDuration("auth.access_token_ttl")
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := v.GetDuration("auth.refresh_token_ttl")
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	tokens := auth.NewTokenService([]byte(jwtSecret), accessTTL, refreshTTL)
	authService := auth.NewService(authStore, tokens, logger.Named("auth"))
	authHandler := auth.NewHandler(authService, logger.Named("auth"))
	logger.Info("auth service initialized",
		zap.String("component", "auth"),
		zap.Duration("access_token_ttl", accessTTL),
		zap.Duration("refresh_token_ttl", refreshTTL),
	)
	go pruneTokens(ctx, authService, 6*time.Hour)

	// Chat stream: pushes pending/completed message events to the owner.
	wsHandler := ws.NewHandler(tokens, a.bus, logger.Named("ws"))

	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return a.db.Ping(ctx)
	})
	srv := server.New(srvCfg, a.reg, logger, readyCheck, authHandler, wsHandler)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("Axiom server ready", zap.String("addr", srvCfg.Addr()))
	fmt.Fprintf(os.Stderr, "\n  Axiom %s is ready on http://localhost:%d\n\n", version.Short(), srvCfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel()
	wsHandler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	a.close(shutdownCtx)

	logger.Info("Axiom server stopped")
	return serveErr
}

// pruneTokens removes expired and revoked refresh tokens at startup and
// then on every tick until ctx is done.
func pruneTokens(ctx context.Context, svc *auth.Service, every time.Duration) {
	svc.Prune(ctx)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			svc.Prune(ctx)
		}
	}
}
