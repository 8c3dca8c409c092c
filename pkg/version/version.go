package version

import "fmt"

// Build information, set via ldflags at release time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String returns the full version string
func String() string {
	return fmt.Sprintf("webextract %s (commit %s, built %s)", Version, Commit, BuildDate)
}

// Short returns just the version number
func Short() string {
	return Version
}
