package server

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/axiom-ai/axiom/internal/llm/moonshot"
	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host      string  `mapstructure:"host"`
	Port      int     `mapstructure:"port"`
	DataDir   string  `mapstructure:"data_dir"`
	DevMode   bool    `mapstructure:"dev_mode"`
	RateLimit float64 `mapstructure:"rate_limit"` // requests per second per client IP
	RateBurst int     `mapstructure:"rate_burst"`

	// TrustProxy keys the rate limiter by X-Forwarded-For.
	TrustProxy bool `mapstructure:"trust_proxy"`

	// WriteTimeout bounds a whole response. Sends wait on the model, so it
	// must exceed the Moonshot timeout plus the vision pass.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MoonshotEnv maps config keys to the MOONSHOT_* environment variables that
// override them. These names are the public interface of the service.
var MoonshotEnv = map[string]string{
	"plugins.llm.api_key":           "MOONSHOT_API_KEY",
	"plugins.llm.model":             "MOONSHOT_MODEL",
	"plugins.llm.search_model":      "MOONSHOT_SEARCH_MODEL",
	"plugins.llm.enable_web_search": "MOONSHOT_ENABLE_WEB_SEARCH",
	"plugins.llm.knowledge_cutoff":  "MOONSHOT_KNOWLEDGE_CUTOFF",
	"plugins.llm.api_base":          "MOONSHOT_API_BASE",
	"plugins.llm.timeout":           "MOONSHOT_TIMEOUT",
	"plugins.llm.temperature":       "MOONSHOT_TEMPERATURE",
}

// LoadConfig reads configuration from defaults, an optional YAML file and
// the environment, in increasing order of precedence.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("database.dsn", filepath.Join("data", "axiom.db"))

	// Auth
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "168h")

	// Module defaults
	llm := moonshot.DefaultConfig()
	v.SetDefault("plugins.llm.search_model", llm.SearchModel)
	v.SetDefault("plugins.llm.enable_web_search", llm.EnableWebSearch)
	v.SetDefault("plugins.llm.api_base", llm.APIBase)
	v.SetDefault("plugins.llm.timeout", llm.Timeout)
	v.SetDefault("plugins.llm.temperature", llm.Temperature)
	v.SetDefault("plugins.llm.max_tokens", 0)
	v.SetDefault("plugins.llm.max_tool_rounds", llm.MaxToolRounds)
	v.SetDefault("plugins.llm.rpm", 0)
	v.SetDefault("plugins.chat.history_limit", 8)
	v.SetDefault("plugins.chat.session_limit", 25)
	v.SetDefault("plugins.chat.max_image_bytes", 4<<20)
	v.SetDefault("plugins.chat.max_image_edge", 1024)
	v.SetDefault("plugins.chat.jpeg_quality", 80)
	v.SetDefault("plugins.chat.vision_chars", 500)
	v.SetDefault("plugins.chat.attachments_dir", filepath.Join("data", "attachments"))
	v.SetDefault("plugins.mcp.api_key", "")
	v.SetDefault("plugins.mqtt.broker_url", "")
	v.SetDefault("plugins.mqtt.client_id", "axiom")
	v.SetDefault("plugins.mqtt.topic_prefix", "axiom")
	v.SetDefault("plugins.mqtt.qos", 1)
	v.SetDefault("plugins.mqtt.timeout", "10s")
	v.SetDefault("plugins.mqtt.include_content", false)
	v.SetDefault("plugins.search.enabled", false)
	v.SetDefault("plugins.search.command", "duckduckgo-mcp-server")
	v.SetDefault("plugins.search.args", "--stdio")
	v.SetDefault("plugins.search.max_results", 6)
	v.SetDefault("plugins.search.max_fetch", 2)
	v.SetDefault("plugins.search.fetch_chars", 1500)
	v.SetDefault("plugins.search.timeout", "30s")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("axiom")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/axiom")
	}

	// Environment variable support: AXIOM_SERVER_PORT=9090
	v.SetEnvPrefix("AXIOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The Moonshot variables keep their documented names.
	for key, env := range MoonshotEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
