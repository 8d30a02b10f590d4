// Package main provides the entry point for kvmesh-cli.
//
// kvmesh-cli talks to kvmesh-server over the Redis protocol for data
// commands and over the admin HTTP API for status and snapshots. Run it
// without arguments for the interactive shell.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/kvmesh-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
