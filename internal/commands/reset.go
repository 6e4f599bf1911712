package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/NielsdaWheelz/issuerunner/internal/config"
	"github.com/NielsdaWheelz/issuerunner/internal/dotnet"
	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/exec"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

// ResetOpts holds options for the reset-packages command.
type ResetOpts struct {
	Root string
	// IssueNumbers limits the reset; empty means every discovered issue.
	IssueNumbers []int
	Verbose      bool
}

// ResetPackages rewrites each issue's project back to the frameworks and
// package versions in its issue_metadata.json. Folders with a skip marker
// are left alone. Returns E_RESET_FAILED if any folder could not be reset.
func ResetPackages(ctx context.Context, cr exec.CommandRunner, fsys fs.FS, cwd string, opts ResetOpts, stdout, stderr io.Writer) error {
	ws, err := openWorkspace(fsys, cwd, opts.Root)
	if err != nil {
		return err
	}
	logger := config.NewLogger(stderr, opts.Verbose).With("repo", ws.label())

	folders, err := (&dotnet.Discovery{Root: ws.Root, Logger: logger}).Discover()
	if err != nil {
		return err
	}

	ids := append([]int(nil), opts.IssueNumbers...)
	if len(ids) == 0 {
		for id := range folders {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	updater := &dotnet.PackageUpdater{Runner: cr, Logger: logger, WorkDir: ws.Root}
	markers := dotnet.Markers{}
	var failed []string
	reset := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ECancelled, "reset interrupted", err)
		}
		dir, ok := folders[id]
		if !ok {
			_, _ = fmt.Fprintf(stdout, "[%d] not found locally\n", id)
			continue
		}
		if markers.ShouldSkip(dir) {
			_, _ = fmt.Fprintf(stdout, "[%d] skipped (%s)\n", id, markers.Reason(dir))
			continue
		}
		if err := updater.Reset(ctx, dir, id); err != nil {
			_, _ = fmt.Fprintf(stdout, "[%d] reset failed: %v\n", id, err)
			failed = append(failed, strconv.Itoa(id))
			continue
		}
		reset++
		_, _ = fmt.Fprintf(stdout, "[%d] reset\n", id)
	}

	if len(failed) > 0 {
		return errors.NewWithDetails(errors.EResetFailed,
			fmt.Sprintf("%d issue folder(s) could not be reset", len(failed)),
			map[string]string{"issues": strings.Join(failed, ",")})
	}
	_, _ = fmt.Fprintf(stdout, "ok reset %d issue(s)\n", reset)
	return nil
}
