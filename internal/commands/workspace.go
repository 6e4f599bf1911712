// Package commands implements issuerunner CLI commands.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/NielsdaWheelz/issuerunner/internal/config"
	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
	"github.com/NielsdaWheelz/issuerunner/internal/store"
)

// workspace is the resolved repository a command operates on.
type workspace struct {
	Root    string
	DataDir string
	Store   *store.Store

	// Repo is nil when the root was found through .git or ISSUERUNNER_ROOT
	// and no repository.json exists.
	Repo *config.RepositoryConfig
}

// openWorkspace resolves the repository root (override first, then walking up
// from cwd, then ISSUERUNNER_ROOT) and loads repository.json when present.
func openWorkspace(fsys fs.FS, cwd, rootOverride string) (*workspace, error) {
	root := rootOverride
	if root == "" {
		var err error
		root, err = config.ResolveRoot(fsys, cwd, os.Getenv)
		if err != nil {
			return nil, err
		}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WrapWithDetails(errors.ENoRoot, "failed to resolve repository root", err,
			map[string]string{"root": root})
	}

	ws := &workspace{
		Root:    abs,
		DataDir: config.DataDir(abs),
	}
	ws.Store = store.NewStore(fsys, ws.DataDir, nil)

	if config.HasRepositoryConfig(fsys, abs) {
		cfg, err := config.LoadRepositoryConfig(fsys, abs)
		if err != nil {
			return nil, err
		}
		ws.Repo = &cfg
	}
	return ws, nil
}

// label is "owner/name" or the root folder name.
func (w *workspace) label() string {
	if w.Repo != nil {
		return w.Repo.Owner + "/" + w.Repo.Name
	}
	return filepath.Base(w.Root)
}

// issueURL prefers the URL recorded in metadata and falls back to the
// GitHub issue page when the repository is configured.
func (w *workspace) issueURL(metadata map[int]store.JobMetadata) func(int) string {
	return func(n int) string {
		if m, ok := metadata[n]; ok && m.URL != "" {
			return m.URL
		}
		if w.Repo == nil {
			return ""
		}
		return fmt.Sprintf("https://github.com/%s/%s/issues/%d", w.Repo.Owner, w.Repo.Name, n)
	}
}
