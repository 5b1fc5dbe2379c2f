// Package version reports build information for garagectl and garage-sim.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/garagectl/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/garagectl/internal/version.Commit=abc1234"
var (
	Version = ""
	Commit  = ""
)

// Info describes the running binary.
type Info struct {
	Version   string
	Commit    string
	Dirty     bool
	GoVersion string
	Platform  string
}

var (
	once sync.Once
	info Info
)

// Get returns build information, falling back to VCS data embedded by the
// Go toolchain when ldflags were not set.
func Get() Info {
	once.Do(func() {
		info = resolve(Version, Commit, readBuildSettings())
	})
	return info
}

func readBuildSettings() map[string]string {
	settings := make(map[string]string)
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return settings
	}
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		settings["main.version"] = bi.Main.Version
	}
	return settings
}

func resolve(version, commit string, settings map[string]string) Info {
	in := Info{
		Version:   version,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if in.Commit == "" {
		rev := settings["vcs.revision"]
		if len(rev) > 7 {
			rev = rev[:7]
		}
		in.Commit = rev
		in.Dirty = settings["vcs.modified"] == "true"
	}
	if in.Version == "" {
		in.Version = settings["main.version"]
	}
	if in.Version == "" {
		in.Version = "dev"
	}
	if in.Commit == "" {
		in.Commit = "unknown"
	}
	return in
}

// String renders a single line for "garagectl version".
func (i Info) String() string {
	commit := i.Commit
	if i.Dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (commit: %s, %s, %s)", i.Version, commit, i.GoVersion, i.Platform)
}

// Full returns the version string including commit.
func Full() string {
	return Get().String()
}
