// Package config provides a Viper-backed implementation of the plugin.Config
// interface plus the process-level helpers (logger, dotenv) used by cmd/axiom.
package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/axiom-ai/axiom/pkg/plugin"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Compile-time interface guard.
var _ plugin.Config = (*ViperConfig)(nil)

// ViperConfig wraps a Viper instance to implement plugin.Config.
type ViperConfig struct {
	v *viper.Viper
}

// New creates a Config backed by the given Viper instance.
// Returns the concrete type; callers assign to plugin.Config where needed.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

// Unmarshal decodes the whole configuration into target. Strings from the
// environment are coerced with the same rules as GetBool and GetDuration.
func (c *ViperConfig) Unmarshal(target any) error {
	return c.v.Unmarshal(target, viper.DecodeHook(DecodeHook()))
}

func (c *ViperConfig) Get(key string) any {
	return c.v.Get(key)
}

func (c *ViperConfig) GetString(key string) string {
	return strings.TrimSpace(c.v.GetString(key))
}

func (c *ViperConfig) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool accepts the usual boolean spellings (yes/no, on/off, 1/0) that
// plain Viper would silently read as false.
func (c *ViperConfig) GetBool(key string) bool {
	switch val := c.v.Get(key).(type) {
	case string:
		b, err := ParseBool(val)
		return err == nil && b
	default:
		return c.v.GetBool(key)
	}
}

func (c *ViperConfig) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

func (c *ViperConfig) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

func (c *ViperConfig) IsSet(key string) bool {
	return c.v.IsSet(key)
}

// Sub returns the subtree rooted at key. Unlike viper.Sub, values coming
// from bound environment variables survive the copy.
func (c *ViperConfig) Sub(key string) plugin.Config {
	prefix := strings.ToLower(key) + "."
	sub := viper.New()
	for _, k := range c.v.AllKeys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		sub.Set(strings.TrimPrefix(k, prefix), c.v.Get(k))
	}
	return New(sub)
}

// Viper returns the underlying Viper instance for direct access
// (e.g., by the server for top-level config like server.port).
func (c *ViperConfig) Viper() *viper.Viper {
	return c.v
}

// ParseBool parses the boolean spellings accepted in environment variables:
// true/false, 1/0, yes/no, on/off, y/n, case-insensitive.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// DecodeHook is the decode hook chain used by Unmarshal.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		boolHook,
		floatHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func boolHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
		return data, nil
	}
	return ParseBool(reflect.ValueOf(data).String())
}

// floatHook parses float strings strictly so that "abc" is an error instead
// of the zero value.
func floatHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	if to.Kind() != reflect.Float64 && to.Kind() != reflect.Float32 {
		return data, nil
	}
	s := strings.TrimSpace(reflect.ValueOf(data).String())
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}
