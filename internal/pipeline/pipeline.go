// Package pipeline runs the restore, build and test stages for one project.
//
// Stages run strictly in order. The first stage that fails (non-zero exit,
// timeout, cancellation or a start error) leaves every later stage NotRun.
// Which command backs each stage is decided by a Planner; the Executor only
// enforces ordering, timeouts and the short-circuit.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NielsdaWheelz/issuerunner/internal/exec"
	"github.com/NielsdaWheelz/issuerunner/internal/outcome"
	"github.com/NielsdaWheelz/issuerunner/internal/store"
)

// Step is one external command.
type Step struct {
	Name string
	Args []string
	Dir  string
}

// String renders the step as a shell-like command line for logs.
func (s Step) String() string {
	return strings.TrimSpace(s.Name + " " + strings.Join(s.Args, " "))
}

// Plan describes the commands for one project.
// A nil Restore or Build means the stage does not apply and stays NotRun;
// this is the case when custom scripts replace the default test command.
type Plan struct {
	Restore *Step
	Build   *Step
	Test    []Step

	// Scripts lists custom test scripts used instead of the default test command.
	Scripts []string

	// RunSettings is the run-settings file passed to the test command, if any.
	RunSettings string
}

// Planner selects the concrete commands for a project.
type Planner interface {
	Plan(artifact, jobDir string) (Plan, error)
}

// StepOutcome is the result of a single stage.
type StepOutcome struct {
	Status    store.StepStatus
	Stdout    string
	Stderr    string
	TimedOut  bool
	Cancelled bool
}

// Report is the full triple for one project plus context carried from the plan.
type Report struct {
	Restore StepOutcome
	Build   StepOutcome
	Test    StepOutcome

	Scripts     []string
	RunSettings string

	// FailedStage is the first stage that failed, or StageNone.
	FailedStage outcome.Stage
}

// Success reports whether the test stage ran and passed.
func (r Report) Success() bool {
	return r.Test.Status == store.StepSuccess
}

// Cancelled reports whether any stage was interrupted by cancellation.
func (r Report) Cancelled() bool {
	return r.Restore.Cancelled || r.Build.Cancelled || r.Test.Cancelled
}

// TimedOut reports whether the failing stage hit its timeout.
func (r Report) TimedOut() bool {
	switch r.FailedStage {
	case outcome.StageRestore:
		return r.Restore.TimedOut
	case outcome.StageBuild:
		return r.Build.TimedOut
	case outcome.StageTest:
		return r.Test.TimedOut
	}
	return false
}

// Outcome returns the outcome for a stage.
func (r Report) Outcome(stage outcome.Stage) StepOutcome {
	switch stage {
	case outcome.StageRestore:
		return r.Restore
	case outcome.StageBuild:
		return r.Build
	default:
		return r.Test
	}
}

// Request is the input for one pipeline run.
type Request struct {
	// Artifact is the absolute project file path.
	Artifact string

	// JobDir is the issue folder containing the artifact.
	JobDir string

	// Timeout applies to each stage separately. Zero means no timeout.
	Timeout time.Duration

	// OnStage, if set, is called after each stage that ran.
	OnStage func(stage outcome.Stage, out StepOutcome)
}

// Executor runs pipelines.
type Executor struct {
	Runner  exec.CommandRunner
	Planner Planner
}

// NewExecutor creates an Executor.
func NewExecutor(runner exec.CommandRunner, planner Planner) *Executor {
	return &Executor{Runner: runner, Planner: planner}
}

// Run executes the stages for req.Artifact. It never returns an error for
// stage failures; those are recorded in the Report. An error is returned
// only when no plan could be produced.
func (e *Executor) Run(ctx context.Context, req Request) (Report, error) {
	plan, err := e.Planner.Plan(req.Artifact, req.JobDir)
	if err != nil {
		return notRunReport(), fmt.Errorf("plan %s: %w", req.Artifact, err)
	}

	report := notRunReport()
	report.Scripts = plan.Scripts
	report.RunSettings = plan.RunSettings

	stages := []struct {
		stage outcome.Stage
		steps []Step
		out   *StepOutcome
	}{
		{outcome.StageRestore, optional(plan.Restore), &report.Restore},
		{outcome.StageBuild, optional(plan.Build), &report.Build},
		{outcome.StageTest, plan.Test, &report.Test},
	}

	for _, s := range stages {
		if len(s.steps) == 0 {
			continue
		}
		if ctx.Err() != nil {
			s.out.Cancelled = true
			return report, nil
		}

		*s.out = e.runStage(ctx, s.steps, req.Timeout)
		if req.OnStage != nil {
			req.OnStage(s.stage, *s.out)
		}
		if s.out.Status != store.StepSuccess {
			report.FailedStage = s.stage
			return report, nil
		}
	}

	return report, nil
}

// runStage runs the steps of one stage in order. All must succeed. Output
// of every step that ran is concatenated.
func (e *Executor) runStage(ctx context.Context, steps []Step, timeout time.Duration) StepOutcome {
	out := StepOutcome{Status: store.StepSuccess}
	var stdout, stderr []string

	for _, step := range steps {
		if ctx.Err() != nil {
			out.Status = store.StepFailed
			out.Cancelled = true
			break
		}

		res, err := e.Runner.Run(ctx, step.Name, step.Args, exec.RunOpts{Dir: step.Dir, Timeout: timeout})
		if err != nil {
			stderr = append(stderr, err.Error())
			out.Status = store.StepFailed
			break
		}
		if res.Stdout != "" {
			stdout = append(stdout, res.Stdout)
		}
		if res.Stderr != "" {
			stderr = append(stderr, res.Stderr)
		}
		out.TimedOut = out.TimedOut || res.TimedOut
		out.Cancelled = out.Cancelled || res.Cancelled
		if !res.OK() {
			out.Status = store.StepFailed
			break
		}
	}

	out.Stdout = strings.Join(stdout, "\n")
	out.Stderr = strings.Join(stderr, "\n")
	return out
}

func optional(s *Step) []Step {
	if s == nil {
		return nil
	}
	return []Step{*s}
}

func notRunReport() Report {
	return Report{
		Restore: StepOutcome{Status: store.StepNotRun},
		Build:   StepOutcome{Status: store.StepNotRun},
		Test:    StepOutcome{Status: store.StepNotRun},
	}
}

// Transcript renders the output of every stage that ran, labelled by stage,
// as (stdout, stderr). NotRun stages contribute nothing.
func (r Report) Transcript() (string, string) {
	var outs, errs []string
	for _, s := range []struct {
		label string
		out   StepOutcome
	}{
		{"Restore", r.Restore},
		{"Build", r.Build},
		{"Test", r.Test},
	} {
		if !s.out.Status.Ran() {
			continue
		}
		outs = append(outs, fmt.Sprintf("=== %s ===\n%s", s.label, s.out.Stdout))
		if strings.TrimSpace(s.out.Stderr) != "" {
			errs = append(errs, fmt.Sprintf("=== %s Error ===\n%s", s.label, s.out.Stderr))
		}
	}
	return strings.Join(outs, "\n"), strings.Join(errs, "\n")
}
