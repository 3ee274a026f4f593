// Package main implements the revise command: the HTTP server of the
// revision scheduler and its maintenance subcommands.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
