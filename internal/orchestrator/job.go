package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/NielsdaWheelz/issuerunner/internal/config"
	"github.com/NielsdaWheelz/issuerunner/internal/events"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
	"github.com/NielsdaWheelz/issuerunner/internal/outcome"
	"github.com/NielsdaWheelz/issuerunner/internal/pipeline"
	"github.com/NielsdaWheelz/issuerunner/internal/store"
)

// StageUpdate is the step name used for the package update in progress events.
const StageUpdate = "update"

// processJob takes one admitted issue through
// Admitted -> (Skipped | FrameworksUpgraded -> PackagesUpdated -> PipelineRun -> ResultBuilt).
// Panics inside one project are recovered by processArtifact. A panic
// outside the per-project loop is recorded against the next project without a
// result (or the issue folder), keeping results already gathered.
func (s *Service) processJob(ctx context.Context, out *Outcome, id int, dir string, opts config.RunOptions) (results []store.ProjectResult, state string) {
	log := s.logger().With("issue", id)
	var artifacts []string

	defer func() {
		if r := recover(); r != nil {
			log.Error("unexpected failure while processing issue", "panic", r)
			project := filepath.Base(dir)
			if len(results) < len(artifacts) {
				project = fs.RelOrBase(dir, artifacts[len(results)])
			}
			results = append(results, s.crashResult(id, project, opts.Feed, store.StepNotRun, fmt.Sprint(r)))
			state = JobFailed
		}
	}()

	if s.Markers.ShouldSkip(dir) {
		reason := s.Markers.Reason(dir)
		log.Info("skipping issue", "reason", reason)
		s.emit(out, events.JobSkipped, events.JobSkippedData(id, reason))
		if r, ok := s.skippedResult(id, dir, opts.Feed); ok {
			return []store.ProjectResult{r}, JobSkipped
		}
		return nil, JobSkipped
	}

	if s.Upgrader.Upgrade(dir, id) {
		log.Debug("upgraded target frameworks")
	}

	artifacts = s.Discovery.ProjectFiles(dir, id)
	if len(artifacts) == 0 {
		log.Warn("no project files found")
		return nil, JobNoProjects
	}

	if opts.SkipNetFx || opts.OnlyNetFx {
		netfx := s.Markers.RequiresWindows(dir) || s.Analyzer.TargetsNetFx(artifacts[0])
		if (opts.SkipNetFx && netfx) || (opts.OnlyNetFx && !netfx) {
			log.Debug("filtered by .NET Framework option", "netfx", netfx)
			s.emit(out, events.JobSkipped, events.JobSkippedData(id, "netfx filter"))
			return nil, JobFiltered
		}
	}

	s.emit(out, events.JobStarted, events.JobStartedData(id, len(artifacts)))

	state = JobCompleted
	for _, artifact := range artifacts {
		if ctx.Err() != nil {
			return nil, JobCancelled
		}
		r, cancelled := s.processArtifact(ctx, out, id, dir, artifact, opts)
		if cancelled {
			return nil, JobCancelled
		}
		if r.TestResult != store.TestSuccess {
			state = JobFailed
		}
		results = append(results, r)
	}
	return results, state
}

// processArtifact updates packages and runs the pipeline for one project.
// The second return is true when the work was interrupted by cancellation.
// A panic becomes a failed result for this project only.
func (s *Service) processArtifact(ctx context.Context, out *Outcome, id int, dir, artifact string,
	opts config.RunOptions) (result store.ProjectResult, cancelled bool) {
	rel := fs.RelOrBase(dir, artifact)
	log := s.logger().With("issue", id, "project", rel)
	updateStatus := store.StepNotRun

	defer func() {
		if r := recover(); r != nil {
			log.Error("unexpected failure while processing project", "panic", r)
			result, cancelled = s.crashResult(id, rel, opts.Feed, updateStatus, fmt.Sprint(r)), false
		}
	}()

	upd, err := s.Packages.Update(ctx, artifact, opts.NUnitOnly, opts.Feed, opts.Timeout)
	if upd.Cancelled || ctx.Err() != nil {
		return store.ProjectResult{}, true
	}
	updateOK := err == nil && upd.OK()
	updateErr := upd.Stderr
	if err != nil {
		updateErr = joinNonEmpty(updateErr, err.Error())
	}
	updateStatus = store.StepSuccess
	if !updateOK {
		updateStatus = store.StepFailed
		log.Warn("package update failed", "exit_code", upd.ExitCode, "timed_out", upd.TimedOut)
	}
	s.stepEvent(out, id, rel, StageUpdate, string(updateStatus), upd.TimedOut)

	frameworks, packages := s.Analyzer.Parse(artifact)

	report, err := s.Pipeline.Run(ctx, pipeline.Request{
		Artifact: artifact,
		JobDir:   dir,
		Timeout:  opts.Timeout,
		OnStage: func(stage outcome.Stage, o pipeline.StepOutcome) {
			s.stepEvent(out, id, rel, string(stage), string(o.Status), o.TimedOut)
		},
	})
	if interrupted(ctx, report, err) {
		return store.ProjectResult{}, true
	}

	testOut, testErr := report.Transcript()
	if err != nil {
		log.Error("pipeline could not start", "error", err)
		testErr = joinNonEmpty(testErr, err.Error())
	}

	conclusion := outcome.Conclusion(outcome.Input{
		Success:     err == nil && report.Success(),
		UpdateOK:    updateOK,
		FailedStage: report.FailedStage,
		TimedOut:    report.TimedOut(),
		Text:        strings.Join([]string{upd.Stdout, upd.Stderr, testOut, testErr}, "\n"),
	})
	log.Info(conclusion)

	testResult := store.TestNotRun
	switch {
	case err != nil:
		testResult = store.TestFail
	case report.Test.Status == store.StepSuccess:
		testResult = store.TestSuccess
	case report.Test.Status == store.StepFailed:
		testResult = store.TestFail
	}

	return store.ProjectResult{
		Number:           id,
		ProjectPath:      rel,
		ProjectStyle:     s.Analyzer.ProjectStyle(artifact),
		TargetFrameworks: frameworks,
		Packages:         packages,
		UpdateResult:     updateStatus,
		UpdateOutput:     upd.Stdout,
		UpdateError:      updateErr,
		RestoreResult:    report.Restore.Status,
		RestoreOutput:    report.Restore.Stdout,
		RestoreError:     report.Restore.Stderr,
		BuildResult:      report.Build.Status,
		BuildOutput:      report.Build.Stdout,
		BuildError:       report.Build.Stderr,
		TestResult:       testResult,
		TestOutput:       testOut,
		TestError:        testErr,
		TestConclusion:   conclusion,
		RunnerScripts:    baseNames(report.Scripts),
		RunSettings:      report.RunSettings,
		Feed:             string(opts.Feed),
		LastRun:          s.Store.Timestamp(),
	}, false
}

// skippedResult is the synthetic result for a marker-skipped issue, keyed
// on its first project file.
func (s *Service) skippedResult(id int, dir string, feed config.Feed) (store.ProjectResult, bool) {
	artifacts := s.Discovery.ProjectFiles(dir, id)
	if len(artifacts) == 0 {
		return store.ProjectResult{}, false
	}
	frameworks, _ := s.Analyzer.Parse(artifacts[0])
	return store.ProjectResult{
		Number:           id,
		ProjectPath:      fs.RelOrBase(dir, artifacts[0]),
		ProjectStyle:     s.Analyzer.ProjectStyle(artifacts[0]),
		TargetFrameworks: frameworks,
		Packages:         []string{},
		UpdateResult:     store.StepNotRun,
		RestoreResult:    store.StepNotRun,
		BuildResult:      store.StepNotRun,
		TestResult:       store.TestSkipped,
		Feed:             string(feed),
		LastRun:          s.Store.Timestamp(),
	}, true
}

// crashResult records an unexpected failure. Nothing ran after the panic,
// so the conclusion is classified from the panic message alone.
func (s *Service) crashResult(id int, project string, feed config.Feed, update store.StepStatus, msg string) store.ProjectResult {
	return store.ProjectResult{
		Number:           id,
		ProjectPath:      project,
		TargetFrameworks: []string{},
		Packages:         []string{},
		UpdateResult:     update,
		RestoreResult:    store.StepNotRun,
		BuildResult:      store.StepNotRun,
		TestResult:       store.TestFail,
		TestError:        msg,
		TestConclusion: outcome.Conclusion(outcome.Input{
			UpdateOK: update != store.StepFailed,
			Text:     msg,
		}),
		Feed:    string(feed),
		LastRun: s.Store.Timestamp(),
	}
}

// interrupted reports whether the pipeline stopped because of cancellation:
// a stage was flagged cancelled, or the context is done and the pipeline
// ended with nothing failed and the test stage not run.
func interrupted(ctx context.Context, report pipeline.Report, err error) bool {
	if report.Cancelled() {
		return true
	}
	return ctx.Err() != nil && err == nil &&
		report.FailedStage == outcome.StageNone && !report.Test.Status.Ran()
}

func (s *Service) stepEvent(out *Outcome, id int, project, stage, status string, timedOut bool) {
	if s.OnStepEvent != nil {
		s.OnStepEvent(id, stage, status)
	}
	s.emit(out, events.StepFinished, events.StepFinishedData(id, project, stage, status, timedOut))
}

func baseNames(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func joinNonEmpty(a, b string) string {
	switch {
	case strings.TrimSpace(a) == "":
		return b
	case strings.TrimSpace(b) == "":
		return a
	}
	return a + "\n" + b
}
