package cobra

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/NielsdaWheelz/issuerunner/internal/commands"
	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
	"github.com/NielsdaWheelz/issuerunner/internal/render"
)

func newDiffCmd() *cobra.Command {
	var format render.Format

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare results against the baseline",
		Long: `Compare results.json against results-baseline.json.

Changes are grouped as:
  regression       success -> fail
  fixed            fail -> success
  compile_to_fail  not run / not compiling -> fail
  other            any other change

Entries that are skipped on either side are not reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(errors.EInternal, "failed to get working directory", err)
			}
			return commands.Diff(context.Background(), fs.NewRealFS(), cwd, commands.DiffOpts{
				Root:   GetGlobalOpts().Root,
				Format: format,
			}, cmd.OutOrStdout())
		},
	}

	addFormatFlag(cmd.Flags(), &format)
	return cmd
}
