// Package version carries build metadata set via ldflags.
package version

var (
	// Version is the release version, e.g. -X .../internal/version.Version=v0.3.0.
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String formats the metadata for -version output.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
