package main

import (
	"slices"

	"github.com/urfave/cli/v3"
)

// getCommands lists every subcommand: server lifecycle first, then key management.
func getCommands(version string) []*cli.Command {
	return slices.Concat(getSystemCommands(version), getKeyCommands())
}
