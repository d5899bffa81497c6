// Package version holds build metadata injected via ldflags.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent is sent on every signed data-plane request.
func UserAgent() string {
	return "aossindex/" + Version + " (" + Commit + ")"
}
