package commands

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
	"github.com/NielsdaWheelz/issuerunner/internal/render"
)

// ReportFile is the default markdown report name, written at the root.
const ReportFile = "TestReport.md"

// ReportOpts holds options for the report command.
type ReportOpts struct {
	Root string
	// Output overrides <root>/TestReport.md.
	Output string
}

// Report renders results.json as a markdown report.
func Report(fsys fs.FS, cwd string, opts ReportOpts, stdout io.Writer, logger *slog.Logger) error {
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
	// Without a snapshot the report lists versions from the results.
	snapshot, err := ws.Store.ReadPackageSnapshot()
	if err != nil && logger != nil {
		logger.Warn("ignoring unreadable package snapshot", "error", err)
	}

	var buf bytes.Buffer
	err = render.WriteMarkdownReport(&buf, render.MarkdownReport{
		Results:  current,
		Metadata: metadata,
		Snapshot: snapshot,
		IssueURL: ws.issueURL(metadata),
	})
	if err != nil {
		return err
	}

	out := opts.Output
	if out == "" {
		out = filepath.Join(ws.Root, ReportFile)
	}
	if err := fs.WriteFileAtomic(fsys, out, buf.Bytes(), 0o644); err != nil {
		return errors.WrapWithDetails(errors.EPersistFailed, "failed to write report", err,
			map[string]string{"path": out})
	}
	_, _ = fmt.Fprintf(stdout, "ok report %s\n", out)
	return nil
}
