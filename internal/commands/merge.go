package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
	"github.com/NielsdaWheelz/issuerunner/internal/store"
)

// MergeOpts holds options for the merge command.
type MergeOpts struct {
	// Primary and Secondary are directories holding a results.json each.
	// Entries from Primary win on key collisions.
	Primary   string
	Secondary string

	// OutDir receives the combined results.json.
	OutDir string
}

// Merge combines the result snapshots of two runs, typically produced on
// different platforms, into OutDir/results.json.
func Merge(fsys fs.FS, opts MergeOpts, stdout io.Writer) error {
	if opts.Primary == "" || opts.Secondary == "" || opts.OutDir == "" {
		return errors.New(errors.EUsage, "merge requires <dirA> <dirB> <outDir>")
	}

	st := store.NewStore(fsys, opts.OutDir, nil)
	load := func(dir string) ([]store.ProjectResult, error) {
		path := filepath.Join(dir, store.ResultsFile)
		results, ok, err := st.LoadSnapshotFile(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.NewWithDetails(errors.ENoResults, "results.json not found",
				map[string]string{"path": path})
		}
		return results, nil
	}

	primary, err := load(opts.Primary)
	if err != nil {
		return err
	}
	secondary, err := load(opts.Secondary)
	if err != nil {
		return err
	}

	merged := store.MergeFirstWins(primary, secondary)
	if err := st.WriteSnapshot(st.ResultsPath(), merged); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stdout, "ok merge %d result(s) (%d + %d) -> %s\n",
		len(merged), len(primary), len(secondary), st.ResultsPath())
	return nil
}
