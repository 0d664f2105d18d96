package version

// Version is the vitrina release version. Overridden at build time with
// -ldflags "-X github.com/vitrina/vitrina/pkg/version.Version=...".
var Version = "0.3.0"

// APIVersion returns the version string reported by the HTTP API.
func APIVersion() string {
	return Version
}
