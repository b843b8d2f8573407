package version

import (
	"fmt"
	"runtime"
)

//nolint:gochecknoglobals // Overridden with -ldflags -X.
var (
	// Version is the semantic version of the build.
	Version = "0.1.0"
	// Commit is the short git SHA, or "none".
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns the version with commit, build time and Go toolchain.
func Full() string {
	return fmt.Sprintf("lsep %s (commit %s, built %s, %s)", Version, Commit, BuildTime, runtime.Version())
}
