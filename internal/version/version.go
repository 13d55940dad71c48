// Package version provides build-time version information.
package version

import "fmt"

// Name is the program name shown in titles and usage text.
const Name = "defect-synth"

// These variables are set at build time using -ldflags, e.g.
//
//	-X defect-synth/internal/version.GitCommit=$(git rev-parse --short HEAD)
var (
	// Version is the semantic version
	Version = "0.3.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// String returns "defect-synth v<version>", with the commit when known.
func String() string {
	if GitCommit == "unknown" || GitCommit == "" {
		return fmt.Sprintf("%s v%s", Name, Version)
	}
	return fmt.Sprintf("%s v%s (%s)", Name, Version, GitCommit)
}
