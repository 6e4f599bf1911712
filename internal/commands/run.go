package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/NielsdaWheelz/issuerunner/internal/config"
	"github.com/NielsdaWheelz/issuerunner/internal/dotnet"
	"github.com/NielsdaWheelz/issuerunner/internal/events"
	"github.com/NielsdaWheelz/issuerunner/internal/exec"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
	"github.com/NielsdaWheelz/issuerunner/internal/orchestrator"
	"github.com/NielsdaWheelz/issuerunner/internal/pipeline"
	"github.com/NielsdaWheelz/issuerunner/internal/render"
)

// RunOpts holds options for the run command.
type RunOpts struct {
	// Root overrides repository root resolution.
	Root string

	Options config.RunOptions
	Verbose bool
}

// Run executes the admitted issues and persists results.json.
func Run(ctx context.Context, cr exec.CommandRunner, fsys fs.FS, cwd string, opts RunOpts, stdout, stderr io.Writer) error {
	if err := opts.Options.Validate(); err != nil {
		return err
	}

	ws, err := openWorkspace(fsys, cwd, opts.Root)
	if err != nil {
		return err
	}

	logger := config.NewLogger(stderr, opts.Verbose).With("repo", ws.label())
	analyzer := &dotnet.Analyzer{Logger: logger}
	discovery := &dotnet.Discovery{Root: ws.Root, Logger: logger}

	svc := &orchestrator.Service{
		Store:     ws.Store,
		Discovery: discovery,
		Analyzer:  analyzer,
		Upgrader:  &dotnet.Upgrader{Logger: logger},
		Packages:  &dotnet.PackageUpdater{Runner: cr, Logger: logger, WorkDir: ws.Root},
		Markers:   dotnet.Markers{},
		Pipeline:  pipeline.NewExecutor(cr, &dotnet.Planner{Analyzer: analyzer}),
		Logger:    logger,
		Events:    events.NewRecorder(ws.Store.EventsPath()),
		OnStepEvent: func(id int, stage, status string) {
			_, _ = fmt.Fprintf(stdout, "[%d] %s: %s\n", id, stage, status)
		},
	}

	_, _ = fmt.Fprintf(stdout, "running %s (feed %s)\n", ws.label(), opts.Options.Feed)
	out, runErr := svc.Run(ctx, opts.Options)
	if out == nil {
		return runErr
	}
	for _, e := range out.EventAppendErrors {
		logger.Warn("failed to append event", "error", e)
	}

	summary := render.RunSummary{
		Results:              out.Fresh,
		Preserved:            out.Preserved,
		MissingRequested:     out.Decision.MissingRequested,
		ExcludedNonCompiling: out.Decision.ExcludedNonCompiling,
		FeedChanged:          out.FeedChanged,
		PreviousFeed:         out.PreviousFeed,
		Feed:                 string(opts.Options.Feed),
		Promoted:             out.Promoted,
		Cancelled:            out.Cancelled,
	}
	if out.Persisted != nil {
		summary.ResultsPath = ws.Store.ResultsPath()
	}
	if len(out.Fresh) > 0 || out.Cancelled {
		if err := render.WriteRunSummary(stdout, summary); err != nil {
			return err
		}
	}
	return runErr
}
