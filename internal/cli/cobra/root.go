// Package cobra provides the Cobra-based CLI command tree for issuerunner.
package cobra

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/version"
)

// GlobalOpts holds global options parsed before subcommand dispatch.
type GlobalOpts struct {
	Verbose bool
	Root    string
}

// globalOpts stores the parsed global options for access by subcommands.
var globalOpts GlobalOpts

// GetGlobalOpts returns the parsed global options.
func GetGlobalOpts() GlobalOpts {
	return globalOpts
}

// NewRootCmd creates the root cobra command for issuerunner.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "issuerunner",
		Short: "Run issue regression tests and compare against a baseline",
		Long: `issuerunner - issue regression test runner

Each Issue<N> folder in the repository holds a small test project that
reproduces a reported issue. issuerunner updates their packages to the
selected feed, restores, builds and tests them, and records one result per
project in .nunit/IssueRunner/results.json. A frozen copy of that file is the
baseline that later runs are compared against.`,
		Version:       version.FullVersion(),
		SilenceErrors: true, // We handle error printing in main.go
		SilenceUsage:  true, // We handle usage printing manually
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVar(&globalOpts.Verbose, "verbose", false, "debug logging and detailed error context")
	rootCmd.PersistentFlags().StringVar(&globalOpts.Root, "root", "", "repository root (default: walk up from cwd, then $ISSUERUNNER_ROOT)")

	// Bad flag values are usage errors (exit 2)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.WrapWithDetails(errors.EUsage, err.Error(), err,
			map[string]string{"hint": "see " + cmd.CommandPath() + " --help"})
	})

	// Disable Cobra's default completion command (we register our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newRunCmd(),
		newDiffCmd(),
		newBaselineCmd(),
		newCheckCmd(),
		newMergeCmd(),
		newReportCmd(),
		newResetPackagesCmd(),
		newCompletionCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the root command with the given output writers.
// This is the main entry point from main.go.
func Execute(stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}
