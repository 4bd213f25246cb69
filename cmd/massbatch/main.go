// Command massbatch runs batch actions over an inventory document, with
// suspend and resume across invocations.
package main

import (
	"os"

	"github.com/rshade/massbatch/internal/cli"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	root := cli.NewRootCmd(version)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
