// Package chat owns conversations: it stores sessions and messages,
// runs the send pipeline against the llm role and serves /api/v1/chat.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/axiom-ai/axiom/pkg/plugin"
	"github.com/axiom-ai/axiom/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
	_ plugin.Validator     = (*Module)(nil)
	_ roles.Answerer       = (*Module)(nil)
)

// Module implements the chat module.
type Module struct {
	logger  *zap.Logger
	cfg     Config
	service *Service
}

// New creates a new chat module instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "chat",
		Version:      "0.3.0",
		Description:  "Research chat sessions backed by the llm module",
		Dependencies: []string{"llm"},
		Roles:        []string{roles.RoleChat},
		Required:     true,
		APIVersion:   plugin.APIVersionCurrent,
	}
}

// LoadConfig decodes the module section over DefaultConfig and validates it.
func LoadConfig(cfg plugin.Config) (Config, error) {
	out := DefaultConfig()
	if cfg != nil {
		if err := cfg.Unmarshal(&out); err != nil {
			return out, fmt.Errorf("unmarshal chat config: %w", err)
		}
	}
	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("invalid chat config: %w", err)
	}
	return out, nil
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig(cfg plugin.Config) error {
	_, err := LoadConfig(cfg)
	return err
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.logger == nil {
		m.logger = zap.NewNop()
	}

	cfg, err := LoadConfig(deps.Config)
	if err != nil {
		return err
	}
	m.cfg = cfg

	if deps.Store == nil {
		return errors.New("chat requires a store")
	}
	if err := deps.Store.Migrate(ctx, "chat", migrations()); err != nil {
		return fmt.Errorf("chat migrations: %w", err)
	}

	var provider roles.LLMProvider
	if deps.Plugins != nil {
		for _, p := range deps.Plugins.ResolveByRole(roles.RoleLLM) {
			if lp, ok := p.(roles.LLMProvider); ok {
				provider = lp
				break
			}
		}
	}
	if provider == nil {
		m.logger.Warn("no llm provider available; replies will report the model as unavailable")
	}

	m.service = NewService(NewStore(deps.Store.DB()), cfg, provider, searchResolver(deps.Plugins), deps.Bus, m.logger)

	m.logger.Info("chat module initialized",
		zap.String("attachments_dir", cfg.AttachmentsDir),
		zap.Int("history_limit", cfg.HistoryLimit),
	)
	return nil
}

// searchResolver looks the search role up per call, so a search module
// initialized after chat is still picked up.
func searchResolver(plugins plugin.PluginResolver) func() roles.SearchProvider {
	return func() roles.SearchProvider {
		if plugins == nil {
			return nil
		}
		for _, p := range plugins.ResolveByRole(roles.RoleSearch) {
			if sp, ok := p.(roles.SearchProvider); ok {
				return sp
			}
		}
		return nil
	}
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop(_ context.Context) error {
	if m.logger != nil {
		m.logger.Info("chat module stopped")
	}
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	if m.service == nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: "not initialized"}
	}
	if m.service.llm == nil {
		return plugin.HealthStatus{Status: "degraded", Message: "no llm provider"}
	}
	return plugin.HealthStatus{Status: "healthy"}
}

// Service returns the send pipeline for in-process callers such as the CLI.
func (m *Module) Service() *Service {
	return m.service
}

// Answer implements roles.Answerer on top of Service.Ask.
func (m *Module) Answer(ctx context.Context, prompt string, webSearch *bool) (roles.Answer, error) {
	if m.service == nil {
		return roles.Answer{}, errors.New("chat module not initialized")
	}
	res, err := m.service.Ask(ctx, prompt, webSearch)
	if err != nil {
		return roles.Answer{}, err
	}
	out := roles.Answer{Text: res.AssistantMessage, Sources: make([]roles.Source, 0, len(res.Sources))}
	for _, s := range res.Sources {
		out.Sources = append(out.Sources, roles.Source{Title: s.Title, URL: s.URL, Snippet: s.Snippet})
	}
	return out, nil
}
