package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NielsdaWheelz/issuerunner/internal/admission"
	"github.com/NielsdaWheelz/issuerunner/internal/config"
	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/events"
	"github.com/NielsdaWheelz/issuerunner/internal/exec"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
	"github.com/NielsdaWheelz/issuerunner/internal/outcome"
	"github.com/NielsdaWheelz/issuerunner/internal/pipeline"
	"github.com/NielsdaWheelz/issuerunner/internal/store"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

// ---- fakes ----

type fakeDiscovery struct {
	jobs     map[int]string
	projects map[int][]string
}

func (f *fakeDiscovery) Discover() (map[int]string, error) { return f.jobs, nil }

func (f *fakeDiscovery) ProjectFiles(_ string, id int) []string { return f.projects[id] }

type fakeAnalyzer struct {
	custom map[string]bool
	netfx  map[string]bool
}

func (f *fakeAnalyzer) Parse(string) ([]string, []string) {
	return []string{"net8.0"}, []string{"NUnit=4.4.0"}
}

func (f *fakeAnalyzer) ProjectStyle(string) string { return "SDK-style" }

func (f *fakeAnalyzer) HasCustomScripts(dir string) bool { return f.custom[dir] }

func (f *fakeAnalyzer) TargetsNetFx(path string) bool { return f.netfx[path] }

type fakeUpgrader struct {
	mu    sync.Mutex
	calls []int
}

func (f *fakeUpgrader) Upgrade(_ string, id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return false
}

type fakePackages struct {
	failUpdate map[string]bool
	resets     []int
	removed    bool
}

func (f *fakePackages) Update(_ context.Context, artifact string, _ bool, _ config.Feed, _ time.Duration) (exec.CmdResult, error) {
	if f.failUpdate[artifact] {
		return exec.CmdResult{ExitCode: 1, Stderr: "could not reach feed"}, nil
	}
	return exec.CmdResult{Stdout: "packages up to date"}, nil
}

func (f *fakePackages) Reset(_ context.Context, _ string, id int) error {
	f.resets = append(f.resets, id)
	return nil
}

func (f *fakePackages) RemovePrereleaseSource(context.Context) error {
	f.removed = true
	return nil
}

func (f *fakePackages) TargetVersions(config.Feed) map[string]string {
	return map[string]string{"NUnit": "4.4.0"}
}

type fakeMarkers struct {
	skip    map[string]string
	windows map[string]bool
}

func (f *fakeMarkers) ShouldSkip(dir string) bool {
	_, ok := f.skip[dir]
	return ok
}

func (f *fakeMarkers) Reason(dir string) string { return f.skip[dir] }

func (f *fakeMarkers) RequiresWindows(dir string) bool { return f.windows[dir] }

type fakePipeline struct {
	reports map[string]pipeline.Report
	panicOn string
	after   func(artifact string)
	calls   []string
}

func (f *fakePipeline) Run(_ context.Context, req pipeline.Request) (pipeline.Report, error) {
	f.calls = append(f.calls, filepath.Base(req.Artifact))
	if f.panicOn != "" && strings.HasSuffix(req.Artifact, f.panicOn) {
		panic("boom")
	}
	report, ok := f.reports[filepath.Base(req.Artifact)]
	if !ok {
		report = passingReport()
	}
	for _, st := range []outcome.Stage{outcome.StageRestore, outcome.StageBuild, outcome.StageTest} {
		if o := report.Outcome(st); o.Status.Ran() && req.OnStage != nil {
			req.OnStage(st, o)
		}
	}
	if f.after != nil {
		f.after(req.Artifact)
	}
	return report, nil
}

func passingReport() pipeline.Report {
	return pipeline.Report{
		Restore: pipeline.StepOutcome{Status: store.StepSuccess},
		Build:   pipeline.StepOutcome{Status: store.StepSuccess},
		Test:    pipeline.StepOutcome{Status: store.StepSuccess, Stdout: "Failed: 0, Passed: 3, Skipped: 0, Total: 3"},
	}
}

func buildFailReport() pipeline.Report {
	return pipeline.Report{
		Restore:     pipeline.StepOutcome{Status: store.StepSuccess},
		Build:       pipeline.StepOutcome{Status: store.StepFailed, Stdout: "error CS1002: ; expected"},
		Test:        pipeline.StepOutcome{Status: store.StepNotRun},
		FailedStage: outcome.StageBuild,
	}
}

func testFailReport() pipeline.Report {
	return pipeline.Report{
		Restore:     pipeline.StepOutcome{Status: store.StepSuccess},
		Build:       pipeline.StepOutcome{Status: store.StepSuccess},
		Test:        pipeline.StepOutcome{Status: store.StepFailed, Stdout: "Failed!  - Failed: 1, Passed: 2, Skipped: 0, Total: 3\n  Expected: 4\n  But was: 5"},
		FailedStage: outcome.StageTest,
	}
}

// ---- fixture ----

type fixture struct {
	svc       *Service
	store     *store.Store
	discovery *fakeDiscovery
	analyzer  *fakeAnalyzer
	upgrader  *fakeUpgrader
	packages  *fakePackages
	markers   *fakeMarkers
	pipe      *fakePipeline

	mu    sync.Mutex
	steps []string
}

func newFixture(t *testing.T, issues ...int) *fixture {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, ".nunit", "IssueRunner")
	st := store.NewStore(fs.NewRealFS(), dataDir, func() time.Time { return fixedNow })

	f := &fixture{
		store:     st,
		discovery: &fakeDiscovery{jobs: map[int]string{}, projects: map[int][]string{}},
		analyzer:  &fakeAnalyzer{custom: map[string]bool{}, netfx: map[string]bool{}},
		upgrader:  &fakeUpgrader{},
		packages:  &fakePackages{failUpdate: map[string]bool{}},
		markers:   &fakeMarkers{skip: map[string]string{}, windows: map[string]bool{}},
		pipe:      &fakePipeline{reports: map[string]pipeline.Report{}},
	}

	var meta []string
	for _, id := range issues {
		dir := filepath.Join(root, fmt.Sprintf("Issue%d", id))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		f.discovery.jobs[id] = dir
		f.discovery.projects[id] = []string{filepath.Join(dir, fmt.Sprintf("Issue%d.csproj", id))}
		meta = append(meta, fmt.Sprintf(`{"number":%d,"title":"issue %d","state":"closed"}`, id, id))
	}
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(st.MetadataPath(), []byte("["+strings.Join(meta, ",")+"]"), 0o644))

	f.svc = &Service{
		Store:     st,
		Discovery: f.discovery,
		Analyzer:  f.analyzer,
		Upgrader:  f.upgrader,
		Packages:  f.packages,
		Markers:   f.markers,
		Pipeline:  f.pipe,
		Events:    &events.Recorder{Path: st.EventsPath(), RunID: "run-1", Now: func() time.Time { return fixedNow }},
		OnStepEvent: func(id int, stage, status string) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.steps = append(f.steps, fmt.Sprintf("%d:%s:%s", id, stage, status))
		},
		Now: func() time.Time { return fixedNow },
	}
	return f
}

func (f *fixture) writeResults(t *testing.T, results ...store.ProjectResult) {
	t.Helper()
	require.NoError(t, f.store.WriteSnapshot(f.store.ResultsPath(), results))
}

func (f *fixture) loadResults(t *testing.T) []store.ProjectResult {
	t.Helper()
	results, ok, err := f.store.LoadResults()
	require.NoError(t, err)
	require.True(t, ok, "results.json should exist")
	return results
}

func opts() config.RunOptions {
	return config.DefaultRunOptions()
}

// ---- tests ----

func TestRun_MissingMetadataIsFatal(t *testing.T) {
	f := newFixture(t, 1)
	require.NoError(t, os.Remove(f.store.MetadataPath()))

	_, err := f.svc.Run(context.Background(), opts())
	assert.Equal(t, errors.ENoMetadata, errors.GetCode(err))
	assert.Empty(t, f.pipe.calls)
}

func TestRun_InvalidOptions(t *testing.T) {
	f := newFixture(t, 1)
	o := opts()
	o.SkipNetFx, o.OnlyNetFx = true, true

	_, err := f.svc.Run(context.Background(), o)
	assert.Equal(t, errors.EInvalidOptions, errors.GetCode(err))
}

func TestRun_PersistsResultsAndProgress(t *testing.T) {
	f := newFixture(t, 1, 2)

	out, err := f.svc.Run(context.Background(), opts())
	require.NoError(t, err)
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, []int{1, 2}, out.Decision.Admitted)
	assert.Empty(t, out.Failed)
	assert.Empty(t, out.EventAppendErrors)

	results := f.loadResults(t)
	require.Len(t, results, 2)
	r := results[0]
	assert.Equal(t, 1, r.Number)
	assert.Equal(t, "Issue1.csproj", r.ProjectPath)
	assert.Equal(t, store.StepSuccess, r.UpdateResult)
	assert.Equal(t, store.StepSuccess, r.BuildResult)
	assert.Equal(t, store.TestSuccess, r.TestResult)
	assert.Equal(t, "Stable", r.Feed)
	assert.Equal(t, "2026-03-04T05:06:07Z", r.LastRun)
	assert.True(t, strings.HasPrefix(r.TestConclusion, "Success: No regression failure"), r.TestConclusion)
	assert.Equal(t, []string{"NUnit=4.4.0"}, r.Packages)

	assert.Equal(t, []int{1, 2}, f.upgrader.calls)
	assert.Contains(t, f.steps, "1:update:success")
	assert.Contains(t, f.steps, "2:test:success")

	assert.FileExists(t, store.IssueResultsPath(f.discovery.jobs[1]))
	assert.FileExists(t, f.store.PackagesPath())

	log, err := os.ReadFile(f.store.EventsPath())
	require.NoError(t, err)
	assert.Contains(t, string(log), `"event":"run_started"`)
	assert.Contains(t, string(log), `"event":"run_finished"`)
}

func TestRun_TestFailureIsReportedAfterPersisting(t *testing.T) {
	f := newFixture(t, 1, 2)
	f.pipe.reports["Issue2.csproj"] = testFailReport()

	out, err := f.svc.Run(context.Background(), opts())
	assert.Equal(t, errors.ETestsFailed, errors.GetCode(err))
	require.NotNil(t, out)
	assert.Equal(t, []int{2}, out.Failed)

	results := f.loadResults(t)
	require.Len(t, results, 2)
	assert.Equal(t, store.TestFail, results[1].TestResult)
	assert.True(t, strings.HasPrefix(results[1].TestConclusion, "Failure: Test assertions failed"), results[1].TestConclusion)
}

func TestRun_BuildFailureConclusion(t *testing.T) {
	f := newFixture(t, 4)
	f.pipe.reports["Issue4.csproj"] = buildFailReport()

	_, err := f.svc.Run(context.Background(), opts())
	assert.Equal(t, errors.ETestsFailed, errors.GetCode(err))

	r := f.loadResults(t)[0]
	assert.Equal(t, store.StepFailed, r.BuildResult)
	assert.Equal(t, store.TestNotRun, r.TestResult)
	assert.True(t, r.CompileFailed())
	assert.True(t, strings.HasPrefix(r.TestConclusion, "Failure: Build failed"), r.TestConclusion)
}

func TestRun_PackageUpdateFailureStillRunsPipeline(t *testing.T) {
	f := newFixture(t, 3)
	f.packages.failUpdate[f.discovery.projects[3][0]] = true
	f.pipe.reports["Issue3.csproj"] = testFailReport()

	_, err := f.svc.Run(context.Background(), opts())
	assert.Equal(t, errors.ETestsFailed, errors.GetCode(err))

	r := f.loadResults(t)[0]
	assert.Equal(t, store.StepFailed, r.UpdateResult)
	assert.Equal(t, "could not reach feed", r.UpdateError)
	assert.True(t, strings.HasPrefix(r.TestConclusion, "Failure: Package update failed"), r.TestConclusion)
	assert.Equal(t, []string{"Issue3.csproj"}, f.pipe.calls)
}

func TestRun_MarkerSkipsJob(t *testing.T) {
	f := newFixture(t, 1, 2)
	f.markers.skip[f.discovery.jobs[1]] = "GUI test"

	out, err := f.svc.Run(context.Background(), opts())
	require.NoError(t, err)
	assert.Empty(t, out.Failed)
	assert.Equal(t, []string{"Issue2.csproj"}, f.pipe.calls)
	assert.Equal(t, []int{2}, f.upgrader.calls)

	r := f.loadResults(t)[0]
	assert.Equal(t, 1, r.Number)
	assert.Equal(t, store.TestSkipped, r.TestResult)
	assert.Equal(t, store.StepNotRun, r.UpdateResult)
	assert.Empty(t, r.Packages)
}

func TestRun_RerunFailedWithoutResults(t *testing.T) {
	f := newFixture(t, 1)
	o := opts()
	o.RerunFailed = true

	out, err := f.svc.Run(context.Background(), o)
	assert.Equal(t, errors.ENothingToRun, errors.GetCode(err))
	assert.Equal(t, admission.StopNoPersistedResult, out.Decision.Stop)
	assert.Empty(t, f.pipe.calls)
}

func TestRun_RerunFailedOnlyRunsFailing(t *testing.T) {
	f := newFixture(t, 1, 2)
	f.writeResults(t,
		store.ProjectResult{Number: 1, ProjectPath: "Issue1.csproj", TestResult: store.TestSuccess, Feed: "Stable"},
		store.ProjectResult{Number: 2, ProjectPath: "Issue2.csproj", TestResult: store.TestFail, Feed: "Stable"},
	)
	o := opts()
	o.RerunFailed = true

	_, err := f.svc.Run(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, []string{"Issue2.csproj"}, f.pipe.calls)

	results := f.loadResults(t)
	require.Len(t, results, 2)
	assert.Equal(t, store.TestSuccess, results[0].TestResult)
	assert.Equal(t, store.TestSuccess, results[1].TestResult)
}

func TestRun_NoneOfRequestedExistDeletesResults(t *testing.T) {
	f := newFixture(t, 1)
	f.writeResults(t, store.ProjectResult{Number: 1, ProjectPath: "Issue1.csproj", TestResult: store.TestSuccess})
	o := opts()
	o.IssueNumbers = []int{99}

	_, err := f.svc.Run(context.Background(), o)
	assert.Equal(t, errors.ENothingToRun, errors.GetCode(err))
	assert.NoFileExists(t, f.store.ResultsPath())
	assert.Empty(t, f.pipe.calls)
}

func TestRun_FeedChangeResetsAdmittedJobs(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	f.markers.skip[f.discovery.jobs[3]] = "GUI test"
	f.writeResults(t,
		store.ProjectResult{Number: 1, ProjectPath: "Issue1.csproj", TestResult: store.TestSuccess, Feed: "Alpha"},
	)

	out, err := f.svc.Run(context.Background(), opts())
	require.NoError(t, err)
	assert.True(t, out.FeedChanged)
	assert.Equal(t, "Alpha", out.PreviousFeed)
	assert.Equal(t, []int{1, 2}, f.packages.resets)
	assert.True(t, f.packages.removed)
}

func TestRun_SameFeedDoesNotReset(t *testing.T) {
	f := newFixture(t, 1)
	f.writeResults(t,
		store.ProjectResult{Number: 1, ProjectPath: "Issue1.csproj", TestResult: store.TestSuccess, Feed: "stable"},
	)

	out, err := f.svc.Run(context.Background(), opts())
	require.NoError(t, err)
	assert.False(t, out.FeedChanged)
	assert.Empty(t, f.packages.resets)
	assert.False(t, f.packages.removed)
}

func TestRun_CarriesForwardExcludedCompileFailures(t *testing.T) {
	f := newFixture(t, 1, 5)
	f.writeResults(t, store.ProjectResult{
		Number:        5,
		ProjectPath:   "Issue5.csproj",
		RestoreResult: store.StepSuccess,
		BuildResult:   store.StepFailed,
		TestResult:    store.TestNotRun,
		Feed:          "Beta",
		LastRun:       "2025-01-01T00:00:00Z",
	})

	out, err := f.svc.Run(context.Background(), opts())
	require.NoError(t, err, "carried-forward entries do not fail the run")
	assert.Equal(t, []int{1}, out.Decision.Admitted)
	assert.Equal(t, 1, out.Preserved)
	assert.Equal(t, []string{"Issue1.csproj"}, f.pipe.calls)

	results := f.loadResults(t)
	require.Len(t, results, 2)
	kept := results[1]
	assert.Equal(t, 5, kept.Number)
	assert.Equal(t, store.StepFailed, kept.BuildResult)
	assert.Equal(t, "Stable", kept.Feed)
	assert.Equal(t, "2026-03-04T05:06:07Z", kept.LastRun)
}

func TestRun_PanicInOneJobIsRecorded(t *testing.T) {
	f := newFixture(t, 1, 2)
	f.pipe.panicOn = "Issue1.csproj"

	out, err := f.svc.Run(context.Background(), opts())
	assert.Equal(t, errors.ETestsFailed, errors.GetCode(err))
	assert.Equal(t, []int{1}, out.Failed)

	results := f.loadResults(t)
	require.Len(t, results, 2)
	assert.Equal(t, store.TestFail, results[0].TestResult)
	assert.Equal(t, "boom", results[0].TestError)
	assert.Equal(t, store.StepSuccess, results[0].UpdateResult)
	assert.Equal(t, "Failure: "+outcome.ReasonGeneric, results[0].TestConclusion)
	assert.Equal(t, store.TestSuccess, results[1].TestResult)
}

func TestRun_PanicKeepsSiblingProjectResults(t *testing.T) {
	f := newFixture(t, 1)
	dir := f.discovery.jobs[1]
	f.discovery.projects[1] = []string{filepath.Join(dir, "A.csproj"), filepath.Join(dir, "B.csproj")}
	f.pipe.panicOn = "B.csproj"

	out, err := f.svc.Run(context.Background(), opts())
	assert.Equal(t, errors.ETestsFailed, errors.GetCode(err))
	assert.Equal(t, []int{1}, out.Failed)

	results := f.loadResults(t)
	require.Len(t, results, 2)
	assert.Equal(t, "A.csproj", results[0].ProjectPath)
	assert.Equal(t, store.TestSuccess, results[0].TestResult)
	assert.Empty(t, results[0].TestError)

	assert.Equal(t, "B.csproj", results[1].ProjectPath)
	assert.Equal(t, store.TestFail, results[1].TestResult)
	assert.Equal(t, "boom", results[1].TestError)
	assert.Equal(t, outcome.Conclusion(outcome.Input{UpdateOK: true, Text: "boom"}), results[1].TestConclusion)
}

func TestRun_CancellationPersistsGathered(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.pipe.after = func(artifact string) {
		if strings.HasSuffix(artifact, "Issue1.csproj") {
			cancel()
		}
	}

	out, err := f.svc.Run(ctx, opts())
	assert.Equal(t, errors.ECancelled, errors.GetCode(err))
	assert.Equal(t, 130, errors.ExitCode(err))
	assert.True(t, out.Cancelled)
	assert.Equal(t, []string{"Issue1.csproj"}, f.pipe.calls)

	results := f.loadResults(t)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Number)
}

func TestRun_CancelledBeforeAnyResult(t *testing.T) {
	f := newFixture(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Run(ctx, opts())
	assert.Equal(t, errors.ECancelled, errors.GetCode(err))
	assert.Empty(t, f.pipe.calls)
	assert.NoFileExists(t, f.store.ResultsPath())
}

func TestRun_NetFxFilters(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	f.analyzer.netfx[f.discovery.projects[1][0]] = true
	f.markers.windows[f.discovery.jobs[3]] = true

	o := opts()
	o.SkipNetFx = true
	_, err := f.svc.Run(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, []string{"Issue2.csproj"}, f.pipe.calls)

	f.pipe.calls = nil
	o = opts()
	o.OnlyNetFx = true
	_, err = f.svc.Run(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, []string{"Issue1.csproj", "Issue3.csproj"}, f.pipe.calls)
}

func TestRun_NoResultsDeletesSnapshot(t *testing.T) {
	f := newFixture(t, 1)
	f.discovery.projects[1] = nil
	f.writeResults(t, store.ProjectResult{Number: 7, ProjectPath: "Old.csproj", TestResult: store.TestSuccess})

	_, err := f.svc.Run(context.Background(), opts())
	assert.Equal(t, errors.ENothingToRun, errors.GetCode(err))
	assert.NoFileExists(t, f.store.ResultsPath())
}

// stagePlanner plans restore, build and test for any project.
type stagePlanner struct{}

func (stagePlanner) Plan(artifact, jobDir string) (pipeline.Plan, error) {
	return pipeline.Plan{
		Restore: &pipeline.Step{Name: "dotnet", Args: []string{"restore", artifact}, Dir: jobDir},
		Build:   &pipeline.Step{Name: "dotnet", Args: []string{"build", "--no-restore", artifact}, Dir: jobDir},
		Test:    []pipeline.Step{{Name: "dotnet", Args: []string{"test", "--no-build", "--no-restore", artifact}, Dir: jobDir}},
	}, nil
}

// cancellingRunner succeeds every command and cancels the run when restore
// is invoked for a project whose path ends in cancelOn.
type cancellingRunner struct {
	cancel   context.CancelFunc
	cancelOn string
	calls    []string
}

func (r *cancellingRunner) Run(_ context.Context, _ string, args []string, _ exec.RunOpts) (exec.CmdResult, error) {
	r.calls = append(r.calls, args[0]+" "+filepath.Base(args[len(args)-1]))
	if args[0] == "restore" && strings.HasSuffix(args[len(args)-1], r.cancelOn) {
		r.cancel()
	}
	if args[0] == "test" {
		return exec.CmdResult{Stdout: "Passed!  - Failed: 0, Passed: 1, Skipped: 0, Total: 1"}, nil
	}
	return exec.CmdResult{Stdout: "ok"}, nil
}

func TestRun_CancellationBetweenStagesIsNotAFailure(t *testing.T) {
	f := newFixture(t, 1, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &cancellingRunner{cancel: cancel, cancelOn: "Issue2.csproj"}
	f.svc.Pipeline = pipeline.NewExecutor(runner, stagePlanner{})

	out, err := f.svc.Run(ctx, opts())
	assert.Equal(t, errors.ECancelled, errors.GetCode(err))
	assert.Equal(t, 130, errors.ExitCode(err))
	require.NotNil(t, out)
	assert.True(t, out.Cancelled)
	assert.Empty(t, out.Failed)
	assert.NotContains(t, runner.calls, "build Issue2.csproj")

	results := f.loadResults(t)
	require.Len(t, results, 1, "the interrupted issue is dropped")
	assert.Equal(t, 1, results[0].Number)
	assert.Equal(t, store.TestSuccess, results[0].TestResult)
}

func TestRun_UpdatesPassFailLists(t *testing.T) {
	f := newFixture(t, 1, 2, 5)
	f.pipe.reports["Issue2.csproj"] = testFailReport()
	require.NoError(t, os.WriteFile(f.store.FailsPath(), []byte(`{"test_results":[
		{"issue":"Issue1","project":"Issue1.csproj","last_run":"2025-01-01T00:00:00Z","test_result":"fail"}
	]}`), 0o644))
	f.writeResults(t, store.ProjectResult{
		Number: 5, ProjectPath: "Issue5.csproj", BuildResult: store.StepFailed, TestResult: store.TestNotRun,
	})

	out, err := f.svc.Run(context.Background(), opts())
	assert.Equal(t, errors.ETestsFailed, errors.GetCode(err))
	require.Len(t, out.Promoted, 1)
	assert.Equal(t, "Issue1", out.Promoted[0].Issue)

	passes, err := f.store.LoadResultList(f.store.PassesPath())
	require.NoError(t, err)
	require.Len(t, passes.TestResults, 1)
	assert.Equal(t, "Issue1", passes.TestResults[0].Issue)

	fails, err := f.store.LoadResultList(f.store.FailsPath())
	require.NoError(t, err)
	require.Len(t, fails.TestResults, 1, "carried-forward results are not listed")
	assert.Equal(t, "Issue2", fails.TestResults[0].Issue)
}
