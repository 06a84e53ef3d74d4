package build

import "fmt"

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// FullVersion returns the version string with commit hash appended.
// Format: "Version+Commit" (e.g., "1.0.0+abc123")
func FullVersion() string {
	return Version + "+" + Commit
}

// Banner is the line printed by `smoothstate version`.
func Banner() string {
	return fmt.Sprintf("smoothstate %s (built %s)", FullVersion(), BuildTime)
}
