// pkg/version/version.go - build version information for the CLI.

package version

import "fmt"

// Set with -ldflags at build time.
var (
	version   = "dev"
	revision  = "unknown"
	buildDate = "unknown"
)

// Info holds version build information about the current binary.
type Info struct {
	Version   string `json:"version"`
	Revision  string `json:"revision"`
	BuildDate string `json:"build_date"`
}

// Current returns the build information compiled into this binary.
func Current() Info {
	return Info{Version: version, Revision: revision, BuildDate: buildDate}
}

// String renders the version the way --version prints it.
func (i Info) String() string {
	return fmt.Sprintf("%s (%s, built %s)", i.Version, i.Revision, i.BuildDate)
}
