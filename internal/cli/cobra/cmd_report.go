package cobra

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/NielsdaWheelz/issuerunner/internal/commands"
	"github.com/NielsdaWheelz/issuerunner/internal/config"
	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

func newReportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a markdown test report from results.json",
		Long: `Write TestReport.md at the repository root from the current results.

The report lists the package versions under test, closed issues with
regression failures, and open issues that now pass (candidates to close)
or still fail (confirmed repros).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(errors.EInternal, "failed to get working directory", err)
			}
			logger := config.NewLogger(cmd.ErrOrStderr(), GetGlobalOpts().Verbose)
			return commands.Report(fs.NewRealFS(), cwd, commands.ReportOpts{
				Root:   GetGlobalOpts().Root,
				Output: output,
			}, cmd.OutOrStdout(), logger)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "report path (default: <root>/"+commands.ReportFile+")")
	return cmd
}
