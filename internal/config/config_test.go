package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"TRUE", true, false},
		{"1", true, false},
		{"yes", true, false},
		{" on ", true, false},
		{"false", false, false},
		{"0", false, false},
		{"No", false, false},
		{"off", false, false},
		{"maybe", false, true},
		{"", false, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseBool(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseBool(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseBool(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestViperConfig_GetBool_AcceptsWords(t *testing.T) {
	v := viper.New()
	v.Set("a", "yes")
	v.Set("b", "off")
	v.Set("c", true)
	c := New(v)

	if !c.GetBool("a") {
		t.Error("GetBool(yes) = false")
	}
	if c.GetBool("b") {
		t.Error("GetBool(off) = true")
	}
	if !c.GetBool("c") {
		t.Error("GetBool(true) = false")
	}
}

func TestViperConfig_Sub_KeepsEnvBindings(t *testing.T) {
	t.Setenv("TEST_AXIOM_SUB_MODEL", "kimi-k2")

	v := viper.New()
	v.SetDefault("plugins.llm.temperature", 0.2)
	if err := v.BindEnv("plugins.llm.model", "TEST_AXIOM_SUB_MODEL"); err != nil {
		t.Fatalf("BindEnv: %v", err)
	}

	sub := New(v).Sub("plugins.llm")

	if got := sub.GetString("model"); got != "kimi-k2" {
		t.Errorf("model = %q, want kimi-k2", got)
	}
	if got := sub.GetFloat64("temperature"); got != 0.2 {
		t.Errorf("temperature = %v, want 0.2", got)
	}
}

func TestViperConfig_Sub_Missing(t *testing.T) {
	sub := New(nil).Sub("nothing.here")
	if sub == nil {
		t.Fatal("Sub() must never return nil")
	}
	if sub.IsSet("anything") {
		t.Error("empty Sub() reports keys as set")
	}
}

func TestViperConfig_Unmarshal_DecodesEnvStrings(t *testing.T) {
	type target struct {
		Enabled  bool          `mapstructure:"enabled"`
		Timeout  float64       `mapstructure:"timeout"`
		Interval time.Duration `mapstructure:"interval"`
		Tags     []string      `mapstructure:"tags"`
	}

	v := viper.New()
	v.Set("enabled", "on")
	v.Set("timeout", "2.5")
	v.Set("interval", "90s")
	v.Set("tags", "a,b")

	var got target
	if err := New(v).Unmarshal(&got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Enabled {
		t.Error("Enabled = false, want true")
	}
	if got.Timeout != 2.5 {
		t.Errorf("Timeout = %v, want 2.5", got.Timeout)
	}
	if got.Interval != 90*time.Second {
		t.Errorf("Interval = %v, want 90s", got.Interval)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "b" {
		t.Errorf("Tags = %v, want [a b]", got.Tags)
	}
}

func TestViperConfig_Unmarshal_RejectsGarbage(t *testing.T) {
	type target struct {
		Enabled bool    `mapstructure:"enabled"`
		Timeout float64 `mapstructure:"timeout"`
	}

	for key, val := range map[string]string{"enabled": "perhaps", "timeout": "soon"} {
		t.Run(key, func(t *testing.T) {
			v := viper.New()
			v.Set(key, val)
			var got target
			if err := New(v).Unmarshal(&got); err == nil {
				t.Errorf("Unmarshal(%s=%q) succeeded, want error", key, val)
			}
		})
	}
}
