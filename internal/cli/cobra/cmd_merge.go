package cobra

import (
	"github.com/spf13/cobra"

	"github.com/NielsdaWheelz/issuerunner/internal/commands"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <dirA> <dirB> <outDir>",
		Short: "Combine results from two platform runs",
		Long: `Combine results.json from two directories into <outDir>/results.json.

Arguments:
  dirA     directory with the primary results.json (wins on conflicts)
  dirB     directory with the secondary results.json
  outDir   directory for the combined results.json

Entries are matched by issue number and project path (case-insensitive).
Typical use: merge Linux and Windows runs of the same repository.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.Merge(fs.NewRealFS(), commands.MergeOpts{
				Primary:   args[0],
				Secondary: args[1],
				OutDir:    args[2],
			}, cmd.OutOrStdout())
		},
	}
	return cmd
}
