package commands

import (
	"context"
	"io"

	"github.com/NielsdaWheelz/issuerunner/internal/diff"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
	"github.com/NielsdaWheelz/issuerunner/internal/render"
)

// DiffOpts holds options for the diff command.
type DiffOpts struct {
	Root   string
	Format render.Format
}

// Diff compares results.json against results-baseline.json and prints the
// classified changes. Differences are informational; only missing or corrupt
// snapshots produce an error.
func Diff(ctx context.Context, fsys fs.FS, cwd string, opts DiffOpts, stdout io.Writer) error {
	ws, err := openWorkspace(fsys, cwd, opts.Root)
	if err != nil {
		return err
	}

	snaps, err := diff.Load(ctx, ws.Store)
	if err != nil {
		return err
	}
	packages, err := ws.Store.ReadPackageSnapshot()
	if err != nil {
		return err
	}

	report := render.NewDiffReport(diff.Compare(snaps.Baseline, snaps.Current), packages)
	if opts.Format == render.FormatJSON || opts.Format == render.FormatYAML {
		return render.WriteStructured(stdout, opts.Format, report)
	}
	return render.WriteDiffHuman(stdout, report)
}
