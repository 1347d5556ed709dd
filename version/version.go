// Package version reports the stepflow build. Release builds stamp the
// variables with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/stepflow/version.Version=1.2.0"
//
// Unstamped builds fall back to the VCS data in debug.ReadBuildInfo.
package version

import (
	"runtime/debug"
	"strings"
)

var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// Get returns the build information.
func Get() Info {
	bi, _ := debug.ReadBuildInfo()
	return resolve(Version, GitCommit, BuildTime, bi)
}

func resolve(ver, commit, built string, bi *debug.BuildInfo) Info {
	info := Info{Version: ver, GitCommit: commit, BuildTime: built}
	if bi == nil {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}
	return info
}

// Short renders "version[-commit][-dirty]".
func (i Info) Short() string {
	parts := []string{i.Version}
	if i.GitCommit != "" {
		parts = append(parts, i.GitCommit)
	}
	if i.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

// String renders Short plus the build time when known.
func (i Info) String() string {
	if i.BuildTime == "" {
		return i.Short()
	}
	return i.Short() + " (built " + i.BuildTime + ")"
}

// UserAgent is the User-Agent stepflow sends on outbound requests.
func UserAgent() string {
	return "stepflow/" + Get().Short()
}
