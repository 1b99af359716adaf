// Package version reports build metadata of the registry service. Values are
// injected with -ldflags "-X" at build time; when they are not, the VCS
// settings recorded by the Go toolchain are used.
package version

import (
	"runtime"
	"runtime/debug"
	"time"
)

// Service is the name reported by /version and in telemetry resources.
const Service = "geotemp-service"

// Build-time variables set via ldflags.
var (
	// Version is the released version of the service
	Version = "1.0.0"

	// BuildTime is when the binary was built (RFC3339)
	BuildTime = "unknown"

	// GitCommit is the commit the binary was built from
	GitCommit = "unknown"

	// GitBranch is the branch the binary was built from
	GitBranch = "unknown"
)

// Info contains version and build information.
type Info struct {
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	BuildTime string    `json:"build_time"`
	GitCommit string    `json:"git_commit"`
	GitBranch string    `json:"git_branch"`
	Modified  bool      `json:"modified"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	BuildDate time.Time `json:"build_date"`
}

// Get returns version and build information.
//
// Returns:
//   - Info: Version details including Go runtime and platform information
func Get() Info {
	info := Info{
		Service:   Service,
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		applyBuildSettings(&info, bi.Settings)
	}

	// "unknown" in development builds does not parse and leaves the zero time.
	if t, err := time.Parse(time.RFC3339, info.BuildTime); err == nil {
		info.BuildDate = t
	}

	return info
}

// applyBuildSettings fills fields that ldflags left unset from the
// toolchain's vcs.* settings.
func applyBuildSettings(info *Info, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" && s.Value != "" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "unknown" && s.Value != "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
}
