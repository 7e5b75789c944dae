package version

import (
	"fmt"
	"io"
	"runtime"
)

// Version is overridden at build time with -ldflags "-X .../version.Version=..."
var Version = "0.3.0"

// Commit is the git revision the binary was built from
var Commit = "dev"

// String returns the one-line version banner
func String() string {
	return fmt.Sprintf("Gomanga v%s (%s, %s/%s)", Version, Commit, runtime.GOOS, runtime.GOARCH)
}

// ShowVersion prints the banner followed by the number of built-in sources
func ShowVersion(w io.Writer, sources int) {
	fmt.Fprintln(w, String())
	fmt.Fprintf(w, "%d built-in sources\n", sources)
}
