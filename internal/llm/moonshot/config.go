package moonshot

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Defaults for the environment-driven configuration.
const (
	DefaultAPIBase       = "https://api.moonshot.ai/v1"
	DefaultSearchModel   = "moonshot-v1-auto"
	DefaultTimeout       = 60.0 // seconds
	DefaultTemperature   = 0.2
	DefaultMaxToolRounds = 5
)

// Config holds the Moonshot provider configuration. Field names mirror the
// MOONSHOT_* environment variables.
type Config struct {
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	SearchModel     string  `mapstructure:"search_model"`
	EnableWebSearch bool    `mapstructure:"enable_web_search"`
	KnowledgeCutoff string  `mapstructure:"knowledge_cutoff"`
	APIBase         string  `mapstructure:"api_base"`
	Timeout         float64 `mapstructure:"timeout"` // seconds, fractions allowed
	Temperature     float64 `mapstructure:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	MaxToolRounds   int     `mapstructure:"max_tool_rounds"`
	RPM             int     `mapstructure:"rpm"` // outbound requests per minute, 0 = unlimited
}

// DefaultConfig returns the documented defaults. APIKey and Model have none.
func DefaultConfig() Config {
	return Config{
		SearchModel:     DefaultSearchModel,
		EnableWebSearch: true,
		APIBase:         DefaultAPIBase,
		Timeout:         DefaultTimeout,
		Temperature:     DefaultTemperature,
		MaxToolRounds:   DefaultMaxToolRounds,
	}
}

// Validate rejects values that can never produce a working client. A
// missing key or model is allowed here; calls fail with a not-configured
// error instead.
func (c Config) Validate() error {
	var errs []error
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %v", c.Timeout))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature))
	}
	if err := validateBase(c.APIBase); err != nil {
		errs = append(errs, err)
	}
	if c.KnowledgeCutoff != "" {
		if _, err := ParseCutoff(c.KnowledgeCutoff); err != nil {
			errs = append(errs, err)
		}
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max_tokens must not be negative, got %d", c.MaxTokens))
	}
	if c.MaxToolRounds < 0 {
		errs = append(errs, fmt.Errorf("max_tool_rounds must not be negative, got %d", c.MaxToolRounds))
	}
	if c.RPM < 0 {
		errs = append(errs, fmt.Errorf("rpm must not be negative, got %d", c.RPM))
	}
	return errors.Join(errs...)
}

// Configured reports whether both the credential and the default model are set.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.Model) != ""
}

// TimeoutDuration converts the timeout in seconds to a time.Duration.
func (c Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout * float64(time.Second))
}

// Endpoint joins the API base with path, tolerating a trailing slash on the base.
func (c Config) Endpoint(path string) string {
	return strings.TrimRight(c.APIBase, "/") + path
}

// Redacted returns a copy safe to log or serve: the key is masked.
func (c Config) Redacted() Config {
	c.APIKey = RedactKey(c.APIKey)
	return c
}

// RedactKey masks all but the scheme prefix and the last four characters.
func RedactKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return "****"
	}
	prefix := ""
	if i := strings.IndexByte(key, '-'); i > 0 && i <= 4 {
		prefix = key[:i+1]
	}
	return prefix + "…" + key[len(key)-4:]
}

// ParseCutoff accepts YYYY-MM-DD or YYYY-MM.
func ParseCutoff(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("knowledge_cutoff %q: want YYYY-MM-DD or YYYY-MM", s)
}

func validateBase(base string) error {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("api_base %q: %w", base, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_base %q: must be an absolute http(s) URL", base)
	}
	return nil
}
