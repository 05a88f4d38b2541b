package context

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// VersionInfo describes the build of the running binary.
type VersionInfo struct {
	Semantic  string
	Commit    string
	Dirty     bool
	GoVersion string
}

// GetVersion returns the version information embedded in the binary by the Go
// toolchain.
func GetVersion() (*VersionInfo, error) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, errors.New("failed reading build information")
	}

	v := &VersionInfo{Semantic: info.Main.Version, GoVersion: info.GoVersion}
	if v.Semantic == "" {
		v.Semantic = "(devel)"
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			v.Commit = s.Value
		case "vcs.modified":
			v.Dirty = s.Value == "true"
		}
	}

	return v, nil
}

// String returns the version in "<semver> (<commit>, <go version>)" format.
// The commit is shortened, and suffixed with "-dirty" if the build included
// uncommitted changes.
func (v *VersionInfo) String() string {
	commit := v.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if commit == "" {
		commit = "unknown"
	}
	if v.Dirty {
		commit += "-dirty"
	}

	return fmt.Sprintf("%s (%s, %s)", v.Semantic, commit, v.GoVersion)
}
