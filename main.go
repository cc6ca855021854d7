package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mrlokans/librarian/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	root := cli.NewRootCommand(cli.Options{Version: fmt.Sprintf("%s (%s)", Version, Commit)})
	if err := root.Execute(); err != nil {
		if !errors.Is(err, cli.ErrInventoryMismatch) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
