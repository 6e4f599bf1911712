// Package orchestrator runs one `issuerunner run` invocation end to end:
// admission, feed-change handling, per-issue processing and persistence.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/NielsdaWheelz/issuerunner/internal/admission"
	"github.com/NielsdaWheelz/issuerunner/internal/config"
	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/events"
	"github.com/NielsdaWheelz/issuerunner/internal/exec"
	"github.com/NielsdaWheelz/issuerunner/internal/pipeline"
	"github.com/NielsdaWheelz/issuerunner/internal/store"
)

// Discoverer finds issue folders and their project files.
type Discoverer interface {
	Discover() (map[int]string, error)
	ProjectFiles(jobDir string, id int) []string
}

// Analyzer reads project files.
type Analyzer interface {
	Parse(path string) (frameworks, packages []string)
	ProjectStyle(path string) string
	HasCustomScripts(dir string) bool
	TargetsNetFx(path string) bool
}

// FrameworkUpgrader rewrites target frameworks in place.
type FrameworkUpgrader interface {
	Upgrade(jobDir string, id int) bool
}

// PackageUpdater moves NUnit package references to the requested feed.
type PackageUpdater interface {
	Update(ctx context.Context, artifact string, nunitOnly bool, feed config.Feed, timeout time.Duration) (exec.CmdResult, error)
	Reset(ctx context.Context, jobDir string, id int) error
	RemovePrereleaseSource(ctx context.Context) error
	TargetVersions(feed config.Feed) map[string]string
}

// Markers inspects marker files in issue folders.
type Markers interface {
	ShouldSkip(dir string) bool
	Reason(dir string) string
	RequiresWindows(dir string) bool
}

// Pipeline runs restore, build and test for one project.
type Pipeline interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Report, error)
}

// StepEventFunc receives progress for every step of every job.
// Stage is "update", "restore", "build" or "test".
type StepEventFunc func(jobID int, stage, status string)

// Job states reported in job_finished events.
const (
	JobCompleted  = "completed"
	JobFailed     = "failed"
	JobSkipped    = "skipped"
	JobFiltered   = "filtered"
	JobNoProjects = "no_projects"
	JobCancelled  = "cancelled"
)

// Service runs test invocations against one repository.
type Service struct {
	Store     *store.Store
	Discovery Discoverer
	Analyzer  Analyzer
	Upgrader  FrameworkUpgrader
	Packages  PackageUpdater
	Markers   Markers
	Pipeline  Pipeline

	Logger      *slog.Logger
	Events      *events.Recorder
	OnStepEvent StepEventFunc
	Now         func() time.Time
}

// Outcome summarizes a run.
type Outcome struct {
	// RunID identifies the run in events.jsonl.
	RunID string

	Decision admission.Decision

	// Fresh holds results produced this invocation, including carried-forward
	// compile failures, in processing order.
	Fresh []store.ProjectResult

	// Persisted is the merged snapshot written to results.json.
	Persisted []store.ProjectResult

	// Preserved counts carried-forward entries in Fresh.
	Preserved int

	// Failed lists issues with at least one project whose test stage did not pass.
	Failed []int

	// Promoted lists projects that moved from test-fails.json to
	// test-passes.json in this run.
	Promoted []store.ListEntry

	FeedChanged  bool
	PreviousFeed string
	Cancelled    bool

	// EventAppendErrors contains any errors from appending events.
	// Non-fatal; the run outcome does not depend on them.
	EventAppendErrors []string
}

// Run executes one invocation.
//
// Returns:
//   - (outcome, nil) when every admitted job passed or was skipped
//   - (outcome, E_TESTS_FAILED) when results were persisted but some job failed
//   - (outcome, E_CANCELLED) when ctx was cancelled; gathered results are persisted
//   - (nil or outcome, other error) for admission stops and infra failures
func (s *Service) Run(ctx context.Context, opts config.RunOptions) (*Outcome, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	start := s.now()
	out := &Outcome{}
	if s.Events != nil {
		out.RunID = s.Events.RunID
	}

	// Step 1: Metadata is required for the whole invocation
	metadata, err := s.Store.LoadMetadata(s.logger())
	if err != nil {
		return nil, err
	}

	// Step 2: Previous results drive rerun-failed, exclusion and feed detection
	previous, _, err := s.Store.LoadResults()
	if err != nil {
		return nil, err
	}

	jobs, err := s.Discovery.Discover()
	if err != nil {
		return nil, err
	}

	// Step 3: Admission
	decision := admission.Filter(jobs, metadata, previous, admission.Options{
		Scope:        admission.Scope(opts.Scope),
		Kind:         admission.Kind(opts.TestTypes),
		IssueNumbers: opts.IssueNumbers,
		RerunFailed:  opts.RerunFailed,
	}, s.Analyzer.HasCustomScripts)
	out.Decision = decision

	for _, id := range decision.MissingRequested {
		s.logger().Warn("requested issue has no local folder", "issue", id)
	}
	if err := s.stopError(decision); err != nil {
		return out, err
	}
	s.logger().Info("admitted issues", "count", len(decision.Admitted),
		"excluded_non_compiling", len(decision.ExcludedNonCompiling))

	s.emit(out, events.RunStarted, events.RunStartedData(string(opts.Feed), opts.Scope, opts.TestTypes,
		opts.RerunFailed, decision.Admitted))

	// Step 4: Feed change, once per invocation
	s.handleFeedChange(ctx, out, previous, jobs, decision.Admitted, opts.Feed)

	// Step 5: Process admitted jobs
	snapshotWritten := false
	for _, id := range decision.Admitted {
		if ctx.Err() != nil {
			out.Cancelled = true
			break
		}
		if !snapshotWritten && !s.Markers.ShouldSkip(jobs[id]) {
			s.writePackageSnapshot(opts.Feed)
			snapshotWritten = true
		}

		results, state := s.processJob(ctx, out, id, jobs[id], opts)
		if state == JobCancelled {
			// Partial results of an interrupted job are not trustworthy.
			out.Cancelled = true
			s.emit(out, events.JobFinished, events.JobFinishedData(id, state, 0))
			break
		}
		s.emit(out, events.JobFinished, events.JobFinishedData(id, state, len(results)))
		if len(results) == 0 {
			continue
		}
		if err := s.Store.WriteIssueResults(jobs[id], results); err != nil {
			s.logger().Warn("failed to write issue_results.json", "issue", id, "error", err)
		}
		out.Fresh = append(out.Fresh, results...)
	}

	out.Failed = failedIssues(out.Fresh)

	// Step 6: Carry forward excluded compile failures
	preserved := s.preserveExcluded(decision, previous, jobs, opts.Feed)
	out.Preserved = len(preserved)
	out.Fresh = append(out.Fresh, preserved...)

	// Step 7: Nothing gathered
	if len(out.Fresh) == 0 {
		if out.Cancelled {
			return s.finish(out, start, errors.New(errors.ECancelled, "run cancelled before any result was produced"))
		}
		if err := s.Store.DeleteResults(); err != nil {
			s.logger().Warn("failed to delete results.json", "error", err)
		}
		return s.finish(out, start, errors.New(errors.ENothingToRun, "no results were produced"))
	}

	// Step 8: Persist once, also on cancellation
	merged, err := s.Store.SaveResults(out.Fresh)
	if err != nil {
		return s.finish(out, start, err)
	}
	out.Persisted = merged

	// Pass/fail lists are best-effort, like the per-issue files.
	update, err := s.Store.RecordPassFail(out.Fresh[:len(out.Fresh)-out.Preserved])
	if err != nil {
		s.logger().Warn("failed to update pass/fail lists", "error", err)
	} else {
		out.Promoted = update.Promoted
		s.logger().Debug("updated pass/fail lists", "passes", update.Passes, "fails", update.Fails,
			"promoted", len(update.Promoted))
	}

	if out.Cancelled {
		return s.finish(out, start, errors.NewWithDetails(errors.ECancelled, "run cancelled; partial results saved",
			map[string]string{"count": strconv.Itoa(len(out.Fresh)), "path": s.Store.ResultsPath()}))
	}

	// Step 9: Exit status
	if len(out.Failed) > 0 {
		return s.finish(out, start, errors.NewWithDetails(errors.ETestsFailed,
			fmt.Sprintf("%d issue(s) failed", len(out.Failed)),
			map[string]string{"count": strconv.Itoa(len(out.Failed)), "issue": joinInts(out.Failed)}))
	}
	return s.finish(out, start, nil)
}

// stopError maps an admission hard stop to an error.
func (s *Service) stopError(d admission.Decision) error {
	switch d.Stop {
	case admission.StopNone:
		if len(d.Admitted) == 0 && len(d.Considered) == 0 {
			return errors.New(errors.ENothingToRun, "no issue folders found")
		}
		return nil
	case admission.StopNoneRequested:
		if err := s.Store.DeleteResults(); err != nil {
			s.logger().Warn("failed to delete results.json", "error", err)
		}
		return errors.NewWithDetails(errors.ENothingToRun, "none of the requested issues exist locally",
			map[string]string{"issue": joinInts(d.MissingRequested)})
	case admission.StopNoPersistedResult:
		return errors.NewWithDetails(errors.ENothingToRun, "no previous results to rerun",
			map[string]string{"op": "rerun-failed", "path": s.Store.ResultsPath()})
	case admission.StopNoFailures:
		return errors.NewWithDetails(errors.ENothingToRun, "no failing issues in previous results",
			map[string]string{"op": "rerun-failed"})
	}
	return errors.New(errors.EInternal, "unknown admission stop: "+string(d.Stop))
}

// handleFeedChange resets package versions when the requested feed differs
// from the feed of the last persisted run. Failures are logged and swallowed.
func (s *Service) handleFeedChange(ctx context.Context, out *Outcome, previous []store.ProjectResult,
	jobs map[int]string, admitted []int, feed config.Feed) {
	if len(previous) == 0 || previous[0].Feed == "" || config.SameFeed(previous[0].Feed, string(feed)) {
		return
	}
	prev := previous[0].Feed
	out.FeedChanged = true
	out.PreviousFeed = prev
	s.logger().Info("package feed changed; resetting package versions", "previous_feed", prev, "feed", feed)
	s.emit(out, events.FeedChanged, events.FeedChangedData(prev, string(feed)))

	for _, id := range admitted {
		if ctx.Err() != nil {
			return
		}
		dir := jobs[id]
		if s.Markers.ShouldSkip(dir) {
			continue
		}
		if err := s.Packages.Reset(ctx, dir, id); err != nil {
			s.logger().Warn("package reset failed", "issue", id, "error", err)
		}
	}

	if config.SameFeed(prev, string(config.FeedAlpha)) {
		if err := s.Packages.RemovePrereleaseSource(ctx); err != nil {
			s.logger().Warn("failed to remove pre-release package source", "error", err)
		}
	}
}

// writePackageSnapshot records the target package versions. Best-effort.
func (s *Service) writePackageSnapshot(feed config.Feed) {
	versions := s.Packages.TargetVersions(feed)
	if len(versions) == 0 {
		return
	}
	if err := s.Store.WritePackageSnapshot(versions, string(feed)); err != nil {
		s.logger().Warn("failed to write package snapshot", "error", err)
	}
}

// preserveExcluded copies forward the previous results of jobs that were
// considered but not admitted and whose last result failed to compile.
func (s *Service) preserveExcluded(d admission.Decision, previous []store.ProjectResult,
	jobs map[int]string, feed config.Feed) []store.ProjectResult {
	admitted := make(map[int]bool, len(d.Admitted))
	for _, id := range d.Admitted {
		admitted[id] = true
	}

	byIssue := store.ByIssue(previous)
	now := s.Store.Timestamp()
	var out []store.ProjectResult
	for _, id := range d.Considered {
		if admitted[id] || s.Markers.ShouldSkip(jobs[id]) {
			continue
		}
		prior := byIssue[id]
		if !anyCompileFailed(prior) {
			continue
		}
		for _, r := range prior {
			r.LastRun = now
			r.Feed = string(feed)
			out = append(out, r)
		}
	}
	return out
}

func (s *Service) finish(out *Outcome, start time.Time, err error) (*Outcome, error) {
	s.emit(out, events.RunFinished, events.RunFinishedData(len(out.Decision.Admitted), len(out.Fresh),
		len(out.Failed), out.Cancelled, s.now().Sub(start).Milliseconds(), string(errors.GetCode(err))))
	return out, err
}

func (s *Service) emit(out *Outcome, name string, data map[string]any) {
	if err := s.Events.Emit(name, data); err != nil {
		out.EventAppendErrors = append(out.EventAppendErrors, fmt.Sprintf("%s: %v", name, err))
	}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func anyCompileFailed(results []store.ProjectResult) bool {
	for _, r := range results {
		if r.CompileFailed() {
			return true
		}
	}
	return false
}

// failedIssues lists issues with any result that is neither success nor skipped.
func failedIssues(results []store.ProjectResult) []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range results {
		if r.TestResult == store.TestSuccess || r.TestResult == store.TestSkipped || seen[r.Number] {
			continue
		}
		seen[r.Number] = true
		out = append(out, r.Number)
	}
	return out
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
