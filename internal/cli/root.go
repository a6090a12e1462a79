package cli

import (
	"context"
	"os"

	"github.com/matzehuels/gridcollage/pkg/buildinfo"
)

// SetVersion overrides the build information shown by --version. Empty
// values keep what was linked in through ldflags.
func SetVersion(version, commit, date string) {
	if version != "" {
		buildinfo.Version = version
	}
	if commit != "" {
		buildinfo.Commit = commit
	}
	if date != "" {
		buildinfo.Date = date
	}
}

// Execute runs the gridcollage CLI with logs on stderr.
//
//	func main() {
//	    if err := cli.Execute(context.Background()); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context) error {
	c := New(os.Stderr, LogInfo)
	return c.RootCommand().ExecuteContext(ctx)
}
