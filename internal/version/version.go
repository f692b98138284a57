package version

import (
	"fmt"
	"runtime/debug"
)

// set via ldflags; the defaults are sentinels that VCS build info may replace
var (
	tag       = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

const releaseURL = "https://github.com/noot-app/macroplan-mcp-server/releases/tag/"

var buildInfoReader = debug.ReadBuildInfo

// Info describes the running build
type Info struct {
	Tag       string `json:"tag"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// Get returns the build info, preferring ldflags values over VCS stamps
func Get() Info {
	info := Info{Tag: tag, Commit: commit, BuildTime: buildTime}

	bi, ok := buildInfoReader()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "unknown" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if buildTime == "unknown" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}

// String renders the version banner printed by --version
func String() string {
	info := Get()
	dirty := ""
	if info.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s) built at %s\n%s%s", info.Tag, info.Commit, dirty, info.BuildTime, releaseURL, info.Tag)
}
