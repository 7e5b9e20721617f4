package main

import (
	"context"
	"fmt"

	"github.com/axiom-ai/axiom/internal/chat"
	"github.com/axiom-ai/axiom/internal/config"
	"github.com/axiom-ai/axiom/internal/event"
	"github.com/axiom-ai/axiom/internal/llm"
	"github.com/axiom-ai/axiom/internal/mcp"
	"github.com/axiom-ai/axiom/internal/mqtt"
	"github.com/axiom-ai/axiom/internal/registry"
	"github.com/axiom-ai/axiom/internal/search"
	"github.com/axiom-ai/axiom/internal/server"
	"github.com/axiom-ai/axiom/internal/store"
	"github.com/axiom-ai/axiom/internal/version"
	"github.com/axiom-ai/axiom/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app is the shared runtime of the serve, ask and mcp commands.
type app struct {
	viper  *viper.Viper
	cfg    *config.ViperConfig
	logger *zap.Logger
	db     *store.SQLiteStore
	bus    *event.Bus
	reg    *registry.Registry
	chat   *chat.Module
	mcp    *mcp.Module
}

// loadSettings reads the dotenv file and the configuration. The logger is
// built afterwards so logging.* can be configured.
func loadSettings(configPath, envPath string) (*viper.Viper, *zap.Logger, error) {
	if envPath != "" {
		if err := config.LoadDotEnv(envPath); err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	v, err := server.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return v, logger, nil
}

// newApp opens the database and brings up the module registry.
func newApp(ctx context.Context, v *viper.Viper, logger *zap.Logger) (*app, error) {
	a := &app{viper: v, cfg: config.New(v), logger: logger}

	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("component", "config"), zap.String("source", f))
	} else {
		logger.Debug("no configuration file found, using defaults", zap.String("component", "config"))
	}

	dsn := v.GetString("database.dsn")
	db, err := store.New(dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("database initialized", zap.String("component", "database"), zap.String("path", dsn))

	a.bus = event.NewBus(logger.Named("event"))
	a.reg = registry.New(logger.Named("registry"))

	a.chat = chat.New()
	a.mcp = mcp.New()
	modules := []plugin.Plugin{
		llm.New(),
		search.New(),
		a.chat,
		a.mcp,
		mqtt.New(),
	}
	for _, m := range modules {
		if err := a.reg.Register(m); err != nil {
			db.Close()
			return nil, fmt.Errorf("register module: %w", err)
		}
	}

	if err := a.reg.Validate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("module validation failed: %w", err)
	}

	err = a.reg.InitAll(ctx, func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config:  a.cfg.Sub("plugins." + name),
			Logger:  logger.Named(name),
			Store:   db,
			Bus:     a.bus,
			Plugins: a.reg,
		}
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize modules: %w", err)
	}

	if err := a.reg.StartAll(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to start modules: %w", err)
	}
	return a, nil
}

// close stops the modules, waits for async events and closes the database.
func (a *app) close(ctx context.Context) {
	a.reg.StopAll(ctx)
	if err := a.bus.Drain(ctx); err != nil {
		a.logger.Warn("event drain incomplete", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("database close error", zap.Error(err))
	}
}
