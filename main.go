package main

import (
	"os"

	"github.com/tphakala/ecocarto/cmd"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := cmd.RootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
