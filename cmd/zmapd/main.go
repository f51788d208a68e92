// zmapd is a control layer around the zmap network scanner: a validated
// scan configuration model, synchronous scan execution with result
// parsing, and a REST API for remote control.
package main

import (
	"github.com/ostrand/zmapd/cmd/cli"
)

// Build information - set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
