// Package version holds build metadata injected with -ldflags:
//
//	-X github.com/axiom-ai/axiom/internal/version.Version=v0.3.0
//	-X github.com/axiom-ai/axiom/internal/version.GitCommit=abc1234
//	-X github.com/axiom-ai/axiom/internal/version.BuildDate=2026-10-01T00:00:00Z
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Short returns the bare version string, e.g. "v0.3.0" or "dev".
func Short() string {
	return Version
}

// Info returns a one-line description for the version command.
func Info() string {
	return fmt.Sprintf("axiom %s (commit %s, built %s, %s)", Version, GitCommit, BuildDate, runtime.Version())
}

// Map returns build metadata for JSON responses.
func Map() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
	}
}
