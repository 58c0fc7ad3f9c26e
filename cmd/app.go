// Package cmd implements the CLI application to inspect portfolio
// performance and benchmark analytics.
package cmd

import (
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(subcommands.HelpCommand(), "")
	c.Register(subcommands.FlagsCommand(), "")
	c.Register(subcommands.CommandsCommand(), "")

	c.Register(&perfCmd{}, "reports")
	c.Register(&analyzeCmd{}, "reports")
}
