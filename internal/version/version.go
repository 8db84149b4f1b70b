// Package version holds build-time identifiers stamped into the
// metadata artifact (spec.md §4.6), normally overridden via -ldflags.
package version

var (
	// Version is the running binary's version string.
	Version = "dev"
	// GitSHA is the git commit this binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
