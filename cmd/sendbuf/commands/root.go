// Package commands contains the cobra commands of sendbuf.
package commands

import (
	"github.com/spf13/cobra"
)

const Version = "0.1.0-dev"

// NewRootCommand returns the root command with all subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "sendbuf",
		Short: "Batching buffer demo",
		Long: `sendbuf collects items in a buffer and sends them in batches.

The serve command runs the buffer behind an HTTP API. The produce command posts
items to a running server.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newProduceCommand())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
