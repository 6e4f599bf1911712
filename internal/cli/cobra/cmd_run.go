package cobra

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/NielsdaWheelz/issuerunner/internal/commands"
	"github.com/NielsdaWheelz/issuerunner/internal/config"
	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/exec"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

func newRunCmd() *cobra.Command {
	opts := config.DefaultRunOptions()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Update packages, build and test issue projects",
		Long: `Update packages, build and test issue projects, then merge the results
into .nunit/IssueRunner/results.json.

Selection, applied in order:
  1. --rerun-failed keeps issues whose last result was not a success
  2. --issues keeps only the listed issues
  3. issues whose last run failed to restore or build are skipped
     (their previous results are carried forward); not applied with --rerun-failed
  4. --scope keeps open or closed issues, issues without a previous result
     (new), or those plus issues whose previous result failed (new-and-failed)
  5. --test-types keeps issues with (custom) or without (direct) run_* scripts

Issue folders containing an ignore, explicit, wip, gui or closed-not-planned
marker file are recorded as skipped and not executed.

Exit status is non-zero when any issue fails, when nothing could be run,
or when interrupted (130).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			stderr := cmd.ErrOrStderr()

			cwd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(errors.EInternal, "failed to get working directory", err)
			}

			cr := exec.NewRealRunner()
			fsys := fs.NewRealFS()

			// Set up cancellation context for user SIGINT
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			return commands.Run(ctx, cr, fsys, cwd, commands.RunOpts{
				Root:    GetGlobalOpts().Root,
				Options: opts,
				Verbose: GetGlobalOpts().Verbose,
			}, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.IntSliceVar(&opts.IssueNumbers, "issues", nil, "comma-separated issue numbers to run")
	flags.Var(newEnumValue(&opts.Scope, "all", "all", "open", "closed", "new", "new-and-failed"), "scope", "issues to include by state or previous result")
	flags.Var(newEnumValue(&opts.TestTypes, "all", "all", "direct", "custom"), "test-types", "run issues without (direct) or with (custom) run_* scripts")
	flags.BoolVar(&opts.RerunFailed, "rerun-failed", false, "only rerun issues that did not succeed last time")
	flags.Var(&feedValue{target: &opts.Feed}, "feed", "package feed to update NUnit packages from")
	flags.BoolVar(&opts.NUnitOnly, "nunit-only", false, "only update NUnit packages, by direct version substitution")
	flags.DurationVar(&opts.Timeout, "timeout", config.DefaultTimeout, "timeout per restore/build/test step (10s to 24h)")
	flags.BoolVar(&opts.SkipNetFx, "skip-netfx", false, "skip issues targeting .NET Framework")
	flags.BoolVar(&opts.OnlyNetFx, "only-netfx", false, "run only issues targeting .NET Framework")
	cmd.MarkFlagsMutuallyExclusive("skip-netfx", "only-netfx")
	cmd.MarkFlagsMutuallyExclusive("rerun-failed", "issues")

	return cmd
}
