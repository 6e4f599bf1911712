package cobra

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/NielsdaWheelz/issuerunner/internal/commands"
	"github.com/NielsdaWheelz/issuerunner/internal/config"
	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
	"github.com/NielsdaWheelz/issuerunner/internal/render"
)

func newCheckCmd() *cobra.Command {
	var format render.Format

	cmd := &cobra.Command{
		Use:   "check",
		Short: "List closed issues that currently fail",
		Long: `List closed issues whose current result is a failure.
A closed issue is expected to pass; a failure means the fix regressed.

Exits non-zero (E_REGRESSIONS) when any are found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(errors.EInternal, "failed to get working directory", err)
			}
			logger := config.NewLogger(cmd.ErrOrStderr(), GetGlobalOpts().Verbose)
			return commands.Check(fs.NewRealFS(), cwd, commands.CheckOpts{
				Root:   GetGlobalOpts().Root,
				Format: format,
			}, cmd.OutOrStdout(), logger)
		},
	}

	addFormatFlag(cmd.Flags(), &format)
	return cmd
}
