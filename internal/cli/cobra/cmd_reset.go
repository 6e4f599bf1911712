package cobra

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/NielsdaWheelz/issuerunner/internal/commands"
	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/exec"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

func newResetPackagesCmd() *cobra.Command {
	var issues []int

	cmd := &cobra.Command{
		Use:   "reset-packages",
		Short: "Reset issue projects to their recorded package versions",
		Long: `Rewrite each issue project back to the target frameworks and package
versions recorded in its issue_metadata.json, undoing earlier updates.

Folders with a skip marker file are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(errors.EInternal, "failed to get working directory", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			return commands.ResetPackages(ctx, exec.NewRealRunner(), fs.NewRealFS(), cwd, commands.ResetOpts{
				Root:         GetGlobalOpts().Root,
				IssueNumbers: issues,
				Verbose:      GetGlobalOpts().Verbose,
			}, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntSliceVar(&issues, "issues", nil, "comma-separated issue numbers to reset (default: all)")
	return cmd
}
