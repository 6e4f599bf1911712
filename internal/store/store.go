// Package store provides persistence for the issuerunner data directory:
// the metadata file, the live and baseline result snapshots, the package
// version snapshot and the event log. Snapshots are written atomically via
// temp file + rename.
package store

import (
	"path/filepath"
	"time"

	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

// File names inside the data directory.
const (
	MetadataFile     = "issues_metadata.json"
	ResultsFile      = "results.json"
	BaselineFile     = "results-baseline.json"
	PackagesFile     = "nunit-packages-current.json"
	EventsFile       = "events.jsonl"
	IssueResultsFile = "issue_results.json"
	PassesFile       = "test-passes.json"
	FailsFile        = "test-fails.json"
)

// Store handles persistence of result snapshots and metadata.
type Store struct {
	FS      fs.FS            // filesystem interface for stubbing
	DataDir string           // resolved <root>/.nunit/IssueRunner
	Now     func() time.Time // injectable clock for deterministic tests
}

// NewStore creates a new Store with the given dependencies.
func NewStore(filesystem fs.FS, dataDir string, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		FS:      filesystem,
		DataDir: dataDir,
		Now:     now,
	}
}

// MetadataPath returns the path to the central metadata file.
// Format: <data_dir>/issues_metadata.json
func (s *Store) MetadataPath() string {
	return filepath.Join(s.DataDir, MetadataFile)
}

// ResultsPath returns the path to the live result snapshot.
// Format: <data_dir>/results.json
func (s *Store) ResultsPath() string {
	return filepath.Join(s.DataDir, ResultsFile)
}

// BaselinePath returns the path to the baseline snapshot.
// Format: <data_dir>/results-baseline.json
func (s *Store) BaselinePath() string {
	return filepath.Join(s.DataDir, BaselineFile)
}

// PackagesPath returns the path to the package version snapshot.
// Format: <data_dir>/nunit-packages-current.json
func (s *Store) PackagesPath() string {
	return filepath.Join(s.DataDir, PackagesFile)
}

// EventsPath returns the path to the append-only event log.
// Format: <data_dir>/events.jsonl
func (s *Store) EventsPath() string {
	return filepath.Join(s.DataDir, EventsFile)
}

// PassesPath returns the path to the passing-project list.
// Format: <data_dir>/test-passes.json
func (s *Store) PassesPath() string {
	return filepath.Join(s.DataDir, PassesFile)
}

// FailsPath returns the path to the failing-project list.
// Format: <data_dir>/test-fails.json
func (s *Store) FailsPath() string {
	return filepath.Join(s.DataDir, FailsFile)
}

// IssueResultsPath returns the per-issue result file inside an issue folder.
// Format: <issue_dir>/issue_results.json
func IssueResultsPath(issueDir string) string {
	return filepath.Join(issueDir, IssueResultsFile)
}

// Timestamp formats t as the second-precision UTC stamp used in snapshots.
func (s *Store) Timestamp() string {
	return FormatTimestamp(s.Now())
}

// FormatTimestamp formats t as ISO-8601 UTC with second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
