package store

import (
	"os"
	"sort"
	"strings"

	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

// Merge combines a previously persisted result set with freshly computed
// entries. Fresh entries replace existing ones with the same key; when the
// same key appears more than once in fresh, the later entry wins. Existing
// entries with no fresh counterpart are kept unchanged. The output is sorted.
func Merge(existing, fresh []ProjectResult) []ProjectResult {
	byKey := make(map[string]ProjectResult, len(existing)+len(fresh))
	for _, r := range existing {
		byKey[r.Key()] = r
	}
	for _, r := range fresh {
		byKey[r.Key()] = r
	}

	merged := make([]ProjectResult, 0, len(byKey))
	for _, r := range byKey {
		merged = append(merged, r)
	}
	SortResults(merged)
	return merged
}

// MergeFirstWins combines two snapshots, keeping the first-seen entry per key.
// Used to combine result sets produced on different platforms.
func MergeFirstWins(primary, secondary []ProjectResult) []ProjectResult {
	byKey := make(map[string]ProjectResult, len(primary)+len(secondary))
	for _, set := range [][]ProjectResult{primary, secondary} {
		for _, r := range set {
			if _, ok := byKey[r.Key()]; !ok {
				byKey[r.Key()] = r
			}
		}
	}

	merged := make([]ProjectResult, 0, len(byKey))
	for _, r := range byKey {
		merged = append(merged, r)
	}
	SortResults(merged)
	return merged
}

// SortResults orders results by issue number, then case-insensitive project path.
func SortResults(results []ProjectResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Number != results[j].Number {
			return results[i].Number < results[j].Number
		}
		return strings.ToLower(results[i].ProjectPath) < strings.ToLower(results[j].ProjectPath)
	})
}

// ByIssue groups results by issue number, preserving order.
func ByIssue(results []ProjectResult) map[int][]ProjectResult {
	out := make(map[int][]ProjectResult)
	for _, r := range results {
		out[r.Number] = append(out[r.Number], r)
	}
	return out
}

// LoadResults reads the live snapshot. A missing file yields (nil, false, nil).
func (s *Store) LoadResults() ([]ProjectResult, bool, error) {
	return s.loadSnapshot(s.ResultsPath())
}

// LoadBaseline reads the baseline snapshot. A missing file yields (nil, false, nil).
func (s *Store) LoadBaseline() ([]ProjectResult, bool, error) {
	return s.loadSnapshot(s.BaselinePath())
}

// LoadSnapshotFile reads a result snapshot at an arbitrary path.
func (s *Store) LoadSnapshotFile(path string) ([]ProjectResult, bool, error) {
	return s.loadSnapshot(path)
}

func (s *Store) loadSnapshot(path string) ([]ProjectResult, bool, error) {
	data, err := s.FS.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.WrapWithDetails(errors.EStoreCorrupt, "failed to read result snapshot", err,
			map[string]string{"path": path})
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, true, nil
	}

	var results []ProjectResult
	if err := fs.UnmarshalJSONStrict(data, &results); err != nil {
		return nil, true, errors.WrapWithDetails(errors.EStoreCorrupt, "result snapshot is not valid JSON", err,
			map[string]string{"path": path})
	}
	return results, true, nil
}

// SaveResults merges fresh into the persisted live snapshot and writes the
// result atomically. The merged set is returned.
func (s *Store) SaveResults(fresh []ProjectResult) ([]ProjectResult, error) {
	existing, _, err := s.LoadResults()
	if err != nil {
		return nil, err
	}
	merged := Merge(existing, fresh)
	if err := s.WriteSnapshot(s.ResultsPath(), merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// WriteSnapshot writes a sorted result set atomically to path.
func (s *Store) WriteSnapshot(path string, results []ProjectResult) error {
	if results == nil {
		results = []ProjectResult{}
	}
	if err := fs.WriteJSONAtomicFS(s.FS, path, results, 0o644); err != nil {
		return errors.WrapWithDetails(errors.EPersistFailed, "failed to write result snapshot", err,
			map[string]string{"path": path})
	}
	return nil
}

// DeleteResults removes the live snapshot. A missing file is not an error.
func (s *Store) DeleteResults() error {
	if err := fs.SafeRemove(s.ResultsPath(), s.DataDir); err != nil {
		return errors.WrapWithDetails(errors.EPersistFailed, "failed to delete results.json", err,
			map[string]string{"path": s.ResultsPath()})
	}
	return nil
}

// PromoteBaseline copies the live snapshot byte-for-byte into the baseline.
func (s *Store) PromoteBaseline() error {
	data, err := s.FS.ReadFile(s.ResultsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewWithDetails(errors.ENoResults, "results.json not found; nothing to promote",
				map[string]string{"path": s.ResultsPath()})
		}
		return errors.Wrap(errors.EPromoteFailed, "failed to read results.json", err)
	}
	if err := fs.WriteFileAtomic(s.FS, s.BaselinePath(), data, 0o644); err != nil {
		return errors.WrapWithDetails(errors.EPromoteFailed, "failed to write baseline", err,
			map[string]string{"path": s.BaselinePath()})
	}
	return nil
}

// WriteIssueResults writes the per-issue copy of results into the issue folder.
func (s *Store) WriteIssueResults(issueDir string, results []ProjectResult) error {
	return fs.WriteJSONAtomicFS(s.FS, IssueResultsPath(issueDir), results, 0o644)
}
