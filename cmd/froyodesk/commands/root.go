package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	noColor    bool
	jsonOutput bool

	version = "dev"
)

// reportedError marks an error that was already shown to the operator.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	return &reportedError{err: err}
}

// IsReported reports whether err was already printed by a command.
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// Execute runs the root command
func Execute(ctx context.Context, ver, commit, buildDate string) error {
	version = ver
	rootCmd := newRootCommand(ver, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "froyodesk",
		Short: "froyodesk - desktop workstation provisioning",
		Long: `froyodesk turns a freshly installed Linux machine into a configured
desktop workstation for one user.

It runs a fixed sequence of steps:
  - Refresh the package database and install the packages of a remote list
  - Enable a display manager
  - Deploy a dotfiles repository
  - Install fonts and developer tools
  - Append shell profile lines and set the default shell

Steps that are already done are skipped. A failed step is reported and the
run continues; only a failed package database refresh stops the run.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (defaults to the built-in configuration)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newProvisionCommand())
	rootCmd.AddCommand(newPackagesCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
