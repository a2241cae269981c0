// Package version provides build version information for the outreach server.
// These variables are set at build time via ldflags.
package version

// Build information variables.
// Example: go build -ldflags "-X outreach/pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // These must be package-level vars for ldflags injection.
var (
	// Version is the semantic version ("dev" for development builds).
	Version = "dev"

	// Commit is the git commit SHA of the build.
	Commit = "none"

	// Date is the build date in ISO format.
	Date = "unknown"
)

// String renders the build information on one line.
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
