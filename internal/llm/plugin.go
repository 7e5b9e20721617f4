// Package llm is the module that owns the Moonshot provider: it loads the
// MOONSHOT_* configuration, exposes the provider to other modules through
// roles.LLMProvider and serves the /api/v1/llm endpoints.
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/axiom-ai/axiom/internal/llm/moonshot"
	pkgllm "github.com/axiom-ai/axiom/pkg/llm"
	"github.com/axiom-ai/axiom/pkg/plugin"
	"github.com/axiom-ai/axiom/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.Validator     = (*Module)(nil)
	_ roles.LLMProvider    = (*Module)(nil)
)

// Module implements the LLM module, wrapping the Moonshot provider.
type Module struct {
	logger *zap.Logger

	mu       sync.RWMutex
	cfg      moonshot.Config
	provider *moonshot.Provider
}

// New creates a new LLM module instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "llm",
		Version:     "0.3.0",
		Description: "Moonshot chat completions with hosted web search",
		Roles:       []string{roles.RoleLLM},
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

// LoadConfig decodes a module config section on top of the defaults and
// validates it.
func LoadConfig(cfg plugin.Config) (moonshot.Config, error) {
	out := moonshot.DefaultConfig()
	if cfg != nil {
		if err := cfg.Unmarshal(&out); err != nil {
			return out, fmt.Errorf("unmarshal llm config: %w", err)
		}
	}
	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("invalid llm config: %w", err)
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

	m.mu.Lock()
	m.cfg = cfg
	m.provider = moonshot.New(cfg, m.logger.Named("moonshot"))
	m.mu.Unlock()

	m.logger.Info("llm module initialized",
		zap.String("model", cfg.Model),
		zap.String("search_model", cfg.SearchModel),
		zap.Bool("web_search", cfg.EnableWebSearch),
		zap.String("api_base", cfg.APIBase),
		zap.String("api_key", moonshot.RedactKey(cfg.APIKey)),
	)
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	m.mu.RLock()
	cfg, provider := m.cfg, m.provider
	m.mu.RUnlock()

	if !cfg.Configured() {
		m.logger.Warn("moonshot is not configured; set MOONSHOT_API_KEY and MOONSHOT_MODEL")
		return nil
	}

	models, err := provider.ListModels(ctx)
	if err != nil {
		m.logger.Warn("moonshot not reachable; chat will degrade until it comes online",
			zap.Error(err),
		)
		return nil
	}

	m.logger.Info("moonshot connected", zap.Int("models", len(models)))
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("llm module stopped")
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	m.mu.RLock()
	cfg, provider := m.cfg, m.provider
	m.mu.RUnlock()

	if provider == nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: "not initialized"}
	}
	if !cfg.Configured() {
		return plugin.HealthStatus{Status: "degraded", Message: "MOONSHOT_API_KEY or MOONSHOT_MODEL not set"}
	}
	if err := provider.Heartbeat(ctx); err != nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: err.Error()}
	}
	return plugin.HealthStatus{
		Status:  "healthy",
		Details: map[string]string{"model": cfg.Model, "search_model": cfg.SearchModel},
	}
}

// Provider implements roles.LLMProvider.
func (m *Module) Provider() pkgllm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.provider == nil {
		return nil
	}
	return m.provider
}

// Defaults implements roles.LLMProvider.
func (m *Module) Defaults() roles.LLMDefaults {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return roles.LLMDefaults{
		Model:           m.cfg.Model,
		SearchModel:     m.cfg.SearchModel,
		EnableWebSearch: m.cfg.EnableWebSearch,
		Configured:      m.cfg.Configured(),
	}
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/config", Handler: m.handleGetConfig},
		{Method: "PUT", Path: "/config", Handler: m.handlePutConfig},
		{Method: "POST", Path: "/test", Handler: m.handleTestConnection},
		{Method: "GET", Path: "/models", Handler: m.handleListModels},
	}
}

// apply swaps in a provider built from cfg.
func (m *Module) apply(cfg moonshot.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	m.provider = moonshot.New(cfg, m.logger.Named("moonshot"))
}

func (m *Module) snapshot() (moonshot.Config, *moonshot.Provider) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg, m.provider
}
