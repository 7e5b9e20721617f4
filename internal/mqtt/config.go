package mqtt

import (
	"errors"
	"fmt"
	"time"

	"github.com/axiom-ai/axiom/pkg/plugin"
)

// Config holds MQTT publisher configuration.
type Config struct {
	BrokerURL   string        `mapstructure:"broker_url"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"` //nolint:gosec // G101: config field name, not a credential
	ClientID    string        `mapstructure:"client_id"`
	TopicPrefix string        `mapstructure:"topic_prefix"`
	QoS         byte          `mapstructure:"qos"`
	Retain      bool          `mapstructure:"retain"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// IncludeContent forwards answer text. Off by default: completed
	// messages otherwise carry only ids and status.
	IncludeContent bool `mapstructure:"include_content"`
}

// DefaultConfig returns the publisher defaults. An empty broker URL
// disables publishing.
func DefaultConfig() Config {
	return Config{
		ClientID:    "axiom",
		TopicPrefix: "axiom",
		QoS:         1,
		Timeout:     10 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if c.TopicPrefix == "" {
		return errors.New("topic_prefix must not be empty")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

// LoadConfig decodes the module section over DefaultConfig and validates it.
func LoadConfig(cfg plugin.Config) (Config, error) {
	out := DefaultConfig()
	if cfg != nil {
		if err := cfg.Unmarshal(&out); err != nil {
			return out, fmt.Errorf("unmarshal mqtt config: %w", err)
		}
	}
	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("invalid mqtt config: %w", err)
	}
	return out, nil
}
