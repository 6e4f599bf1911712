package commands

import (
	"fmt"
	"io"

	"github.com/NielsdaWheelz/issuerunner/internal/events"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

// BaselineOpts holds options for the baseline command.
type BaselineOpts struct {
	Root string
}

// Baseline promotes results.json to results-baseline.json.
func Baseline(fsys fs.FS, cwd string, opts BaselineOpts, stdout, stderr io.Writer) error {
	ws, err := openWorkspace(fsys, cwd, opts.Root)
	if err != nil {
		return err
	}
	if err := ws.Store.PromoteBaseline(); err != nil {
		return err
	}

	rec := events.NewRecorder(ws.Store.EventsPath())
	if err := rec.Emit(events.BaselineSaved, events.BaselineSavedData(ws.Store.BaselinePath())); err != nil {
		_, _ = fmt.Fprintf(stderr, "warning: failed to append event: %v\n", err)
	}

	_, _ = fmt.Fprintf(stdout, "ok baseline %s\n", ws.Store.BaselinePath())
	return nil
}
