package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("LoadDotEnv(missing) = %v, want nil", err)
	}
	if err := LoadDotEnv(""); err != nil {
		t.Fatalf("LoadDotEnv(\"\") = %v, want nil", err)
	}
}

func TestLoadDotEnv_DoesNotOverrideProcessEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "AXIOM_DOTENV_FRESH=from-file\nAXIOM_DOTENV_SET=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AXIOM_DOTENV_SET", "from-process")
	// Register cleanup for the variable the file introduces.
	t.Setenv("AXIOM_DOTENV_FRESH", "")
	os.Unsetenv("AXIOM_DOTENV_FRESH")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("AXIOM_DOTENV_FRESH"); got != "from-file" {
		t.Errorf("AXIOM_DOTENV_FRESH = %q, want from-file", got)
	}
	if got := os.Getenv("AXIOM_DOTENV_SET"); got != "from-process" {
		t.Errorf("AXIOM_DOTENV_SET = %q, want from-process", got)
	}
}
