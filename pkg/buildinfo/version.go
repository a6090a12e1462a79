// Package buildinfo reports the version of the gridcollage binary.
//
// Release builds set the variables through ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/gridcollage/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/gridcollage/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/gridcollage/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Binaries built with "go install" fall back to the module version and VCS
// stamps the toolchain embeds.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Ldflags targets.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is a resolved set of build stamps.
type Info struct {
	Version string
	Commit  string
	Date    string
}

var readBuildInfo = debug.ReadBuildInfo

// Get returns the ldflags stamps, filling the unset ones from the embedded
// build info.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	if bi, ok := readBuildInfo(); ok {
		info = merge(info, bi)
	}
	return info
}

func merge(info Info, bi *debug.BuildInfo) Info {
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "none":
			info.Commit = s.Value
		case s.Key == "vcs.time" && info.Date == "unknown":
			info.Date = s.Value
		}
	}
	return info
}

// Template returns the version template for cobra.
func Template() string {
	i := Get()
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", i.Version, i.Commit, i.Date)
}
