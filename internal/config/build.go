package config

import "fmt"

// Set at link time, e.g.
//
//	go build -ldflags "-X hubwatch/internal/config.version=1.4.0 \
//	    -X hubwatch/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X hubwatch/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo returns the linker-injected build metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (%s, built %s)", b.Version, b.Commit, b.BuildTime)
}
