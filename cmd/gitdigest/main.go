// Package main is the gitdigest CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/nnamdiodozi/gitdigest/cmd/gitdigest/commands"
	_ "modernc.org/sqlite"
)

// version is injected at build time via ldflags.
var version = "dev"

func main() {
	rootCmd := commands.NewRootCmd(version)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
