package commands

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/NielsdaWheelz/issuerunner/internal/diff"
	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
	"github.com/NielsdaWheelz/issuerunner/internal/render"
)

// CheckOpts holds options for the check command.
type CheckOpts struct {
	Root   string
	Format render.Format
}

// checkReport is the structured form of `issuerunner check`.
type checkReport struct {
	Count    int                      `json:"count" yaml:"count"`
	Failures []diff.RegressionFailure `json:"failures" yaml:"failures"`
}

// Check lists closed issues whose current result is a failure.
// Returns E_REGRESSIONS when there is at least one.
func Check(fsys fs.FS, cwd string, opts CheckOpts, stdout io.Writer, logger *slog.Logger) error {
	ws, err := openWorkspace(fsys, cwd, opts.Root)
	if err != nil {
		return err
	}

	current, ok, err := ws.Store.LoadResults()
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewWithDetails(errors.ENoResults, "results.json not found",
			map[string]string{"path": ws.Store.ResultsPath()})
	}
	metadata, err := ws.Store.LoadMetadata(logger)
	if err != nil {
		return err
	}

	failures := diff.ClosedFailures(current, metadata)
	if failures == nil {
		failures = []diff.RegressionFailure{}
	}

	if opts.Format == render.FormatJSON || opts.Format == render.FormatYAML {
		if err := render.WriteStructured(stdout, opts.Format, checkReport{Count: len(failures), Failures: failures}); err != nil {
			return err
		}
	} else if err := render.WriteCheckHuman(stdout, failures); err != nil {
		return err
	}

	if len(failures) > 0 {
		return errors.NewWithDetails(errors.ERegressions,
			fmt.Sprintf("%d regression failure(s) in closed issues", len(failures)),
			map[string]string{"count": strconv.Itoa(len(failures))})
	}
	return nil
}
