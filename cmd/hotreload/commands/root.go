// Package commands implements the CLI commands for the hotreload runner.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// CLI represents the command line interface for hotreload.
type CLI struct {
	rootCmd *cobra.Command
}

// New creates a new CLI instance.
func New() *CLI {
	rootCmd := &cobra.Command{
		Use:           "hotreload",
		Short:         "Live-reload harness for GPU rendering apps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c := &CLI{rootCmd: rootCmd}

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newResolveCmd())
	rootCmd.AddCommand(c.newCheckCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects command output. Used for testing.
func (c *CLI) SetOutput(w io.Writer) {
	c.rootCmd.SetOut(w)
	c.rootCmd.SetErr(w)
}
