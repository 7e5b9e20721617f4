package search

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/axiom-ai/axiom/pkg/plugin"
	"github.com/axiom-ai/axiom/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.Validator     = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
	_ roles.SearchProvider = (*Module)(nil)
)

// Module exposes the MCP client as the "search" role.
type Module struct {
	logger *zap.Logger
	cfg    Config
	client *Client
}

// New creates a new search module instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "search",
		Version:     "0.3.0",
		Description: "Web context from an external MCP search server",
		Roles:       []string{roles.RoleSearch},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

// LoadConfig decodes the module section over DefaultConfig and validates it.
func LoadConfig(cfg plugin.Config) (Config, error) {
	out := DefaultConfig()
	if cfg != nil {
		if err := cfg.Unmarshal(&out); err != nil {
			return out, fmt.Errorf("unmarshal search config: %w", err)
		}
	}
	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("invalid search config: %w", err)
	}
	return out, nil
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig(cfg plugin.Config) error {
	_, err := LoadConfig(cfg)
	return err
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	cfg, err := LoadConfig(deps.Config)
	if err != nil {
		return err
	}
	m.cfg = cfg
	m.client = NewClient(cfg, m.logger)

	m.logger.Info("search module initialized",
		zap.Bool("enabled", cfg.Enabled),
		zap.String("command", cfg.Command),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	if !m.cfg.Enabled {
		return nil
	}
	if _, err := exec.LookPath(m.cfg.Command); err != nil {
		m.logger.Warn("search command not found, web context disabled until it is installed",
			zap.String("command", m.cfg.Command))
	}
	return nil
}

func (m *Module) Stop(_ context.Context) error { return nil }

func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	if !m.cfg.Enabled {
		return plugin.HealthStatus{Status: "healthy", Details: map[string]string{"enabled": "false"}}
	}
	if _, err := exec.LookPath(m.cfg.Command); err != nil {
		return plugin.HealthStatus{
			Status:  "degraded",
			Message: fmt.Sprintf("command %q not found", m.cfg.Command),
		}
	}
	return plugin.HealthStatus{Status: "healthy", Details: map[string]string{"enabled": "true"}}
}

// WebContext implements roles.SearchProvider. Failures degrade to no context.
func (m *Module) WebContext(ctx context.Context, query string) (string, []roles.Source) {
	if !m.cfg.Enabled || m.client == nil {
		return "", nil
	}
	return webContext(ctx, m.client, m.cfg.MaxResults, query, m.logger)
}

func webContext(ctx context.Context, c *Client, limit int, query string, logger *zap.Logger) (string, []roles.Source) {
	outcome, err := c.Search(ctx, query)
	if err != nil {
		logger.Warn("mcp search failed", zap.Error(err))
		return "", nil
	}
	if len(outcome.Results) == 0 && len(outcome.Fetched) == 0 {
		return "", nil
	}
	block, results := ContextBlock(outcome, limit)
	sources := make([]roles.Source, len(results))
	for i, r := range results {
		sources[i] = roles.Source{Title: r.Title, URL: r.URL, Snippet: r.Snippet}
	}
	return block, sources
}
