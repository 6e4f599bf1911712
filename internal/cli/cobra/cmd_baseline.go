package cobra

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/NielsdaWheelz/issuerunner/internal/commands"
	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

func newBaselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Promote current results to the baseline",
		Long: `Copy results.json to results-baseline.json unchanged.
Later 'issuerunner diff' runs compare against this copy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(errors.EInternal, "failed to get working directory", err)
			}
			return commands.Baseline(fs.NewRealFS(), cwd, commands.BaselineOpts{Root: GetGlobalOpts().Root},
				cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	return cmd
}
