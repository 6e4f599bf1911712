package store

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

// ListEntry is one project in test-passes.json or test-fails.json.
type ListEntry struct {
	Issue      string `json:"issue"` // "Issue<N>"
	Project    string `json:"project"`
	LastRun    string `json:"last_run"`
	TestResult string `json:"test_result"`
}

func (e ListEntry) key() string {
	return e.Issue + "|" + strings.ToLower(e.Project)
}

// ResultList is the on-disk shape of both list files.
type ResultList struct {
	TestResults []ListEntry `json:"test_results"`
}

// ListUpdate summarizes one RecordPassFail call.
type ListUpdate struct {
	// Promoted are entries that moved from the fails list to the passes list.
	Promoted []ListEntry

	Passes int
	Fails  int
}

// IssueName returns the folder-style issue label, e.g. "Issue1015".
func IssueName(number int) string {
	return "Issue" + strconv.Itoa(number)
}

// LoadResultList reads a list file. A missing file is an empty list.
func (s *Store) LoadResultList(path string) (ResultList, error) {
	data, err := s.FS.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ResultList{TestResults: []ListEntry{}}, nil
		}
		return ResultList{}, errors.WrapWithDetails(errors.EStoreCorrupt, "failed to read result list", err,
			map[string]string{"path": path})
	}
	var list ResultList
	if err := fs.UnmarshalJSONStrict(data, &list); err != nil {
		return ResultList{}, errors.WrapWithDetails(errors.EStoreCorrupt, "result list is not valid JSON", err,
			map[string]string{"path": path})
	}
	if list.TestResults == nil {
		list.TestResults = []ListEntry{}
	}
	return list, nil
}

// RecordPassFail folds fresh results into test-passes.json and
// test-fails.json. A success moves its project to the passes list; any other
// outcome except skipped moves it to the fails list. Entries not touched by
// fresh are kept. Projects that were failing and now pass are reported as
// promoted.
func (s *Store) RecordPassFail(fresh []ProjectResult) (ListUpdate, error) {
	passes, err := s.LoadResultList(s.PassesPath())
	if err != nil {
		return ListUpdate{}, err
	}
	fails, err := s.LoadResultList(s.FailsPath())
	if err != nil {
		return ListUpdate{}, err
	}

	passing := indexEntries(passes.TestResults)
	failing := indexEntries(fails.TestResults)
	now := s.Timestamp()

	var update ListUpdate
	for _, r := range fresh {
		if r.TestResult == TestSkipped {
			continue
		}
		entry := ListEntry{
			Issue:      IssueName(r.Number),
			Project:    r.ProjectPath,
			LastRun:    now,
			TestResult: r.TestResult,
		}
		if entry.TestResult == "" {
			entry.TestResult = "unknown"
		}
		k := entry.key()
		if r.TestResult == TestSuccess {
			if old, ok := failing[k]; ok {
				update.Promoted = append(update.Promoted, old)
			}
			passing[k] = entry
			delete(failing, k)
		} else {
			failing[k] = entry
			delete(passing, k)
		}
	}

	passList := ResultList{TestResults: sortedEntries(passing)}
	failList := ResultList{TestResults: sortedEntries(failing)}
	if err := fs.WriteJSONAtomicFS(s.FS, s.PassesPath(), passList, 0o644); err != nil {
		return ListUpdate{}, errors.Wrap(errors.EPersistFailed, "failed to write test-passes.json", err)
	}
	if err := fs.WriteJSONAtomicFS(s.FS, s.FailsPath(), failList, 0o644); err != nil {
		return ListUpdate{}, errors.Wrap(errors.EPersistFailed, "failed to write test-fails.json", err)
	}

	update.Passes = len(passList.TestResults)
	update.Fails = len(failList.TestResults)
	return update, nil
}

func indexEntries(entries []ListEntry) map[string]ListEntry {
	out := make(map[string]ListEntry, len(entries))
	for _, e := range entries {
		out[e.key()] = e
	}
	return out
}

func sortedEntries(m map[string]ListEntry) []ListEntry {
	out := make([]ListEntry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Issue != out[j].Issue {
			return out[i].Issue < out[j].Issue
		}
		return strings.ToLower(out[i].Project) < strings.ToLower(out[j].Project)
	})
	return out
}
