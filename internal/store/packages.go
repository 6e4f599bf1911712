package store

import (
	"os"

	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

// PackageSnapshot records the package versions targeted by a run.
type PackageSnapshot struct {
	Packages  map[string]string `json:"packages"`
	Timestamp string            `json:"timestamp"`
	Feed      string            `json:"feed"`
}

// WritePackageSnapshot stamps and writes the package version snapshot.
func (s *Store) WritePackageSnapshot(packages map[string]string, feed string) error {
	snap := PackageSnapshot{
		Packages:  packages,
		Timestamp: s.Timestamp(),
		Feed:      feed,
	}
	return fs.WriteJSONAtomicFS(s.FS, s.PackagesPath(), snap, 0o644)
}

// ReadPackageSnapshot reads the package version snapshot, if present.
func (s *Store) ReadPackageSnapshot() (*PackageSnapshot, error) {
	data, err := s.FS.ReadFile(s.PackagesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.EStoreCorrupt, "failed to read package snapshot", err)
	}
	var snap PackageSnapshot
	if err := fs.UnmarshalJSONStrict(data, &snap); err != nil {
		return nil, errors.Wrap(errors.EStoreCorrupt, "package snapshot is not valid JSON", err)
	}
	return &snap, nil
}
