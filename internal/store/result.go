package store

import (
	"fmt"
	"strings"
)

// StepStatus is the persisted status of a single pipeline stage.
type StepStatus string

const (
	StepNotRun  StepStatus = "not run"
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "fail"
)

// Ran reports whether the stage executed at all.
func (s StepStatus) Ran() bool {
	return s == StepSuccess || s == StepFailed
}

// Aggregate test-result labels. Any other string is preserved verbatim.
const (
	TestSuccess      = "success"
	TestFail         = "fail"
	TestNotRun       = "not run"
	TestSkipped      = "skipped"
	TestNotCompiling = "not compiling"
)

// ProjectResult is the persisted outcome for one (issue, project) pair.
// It is the unit stored in results.json and results-baseline.json.
type ProjectResult struct {
	// Number is the issue identifier.
	Number int `json:"number"`

	// ProjectPath is the project file path relative to the issue folder.
	// Compared case-insensitively when keying.
	ProjectPath string `json:"project_path"`

	// ProjectStyle is "SDK-style", "classic" or "unknown".
	ProjectStyle string `json:"project_style,omitempty"`

	// TargetFrameworks lists the frameworks declared by the project.
	TargetFrameworks []string `json:"target_frameworks"`

	// Packages lists declared package references as "Name=Version".
	Packages []string `json:"packages"`

	UpdateResult StepStatus `json:"update_result"`
	UpdateOutput string     `json:"update_output,omitempty"`
	UpdateError  string     `json:"update_error,omitempty"`

	RestoreResult StepStatus `json:"restore_result"`
	RestoreOutput string     `json:"restore_output,omitempty"`
	RestoreError  string     `json:"restore_error,omitempty"`

	BuildResult StepStatus `json:"build_result"`
	BuildOutput string     `json:"build_output,omitempty"`
	BuildError  string     `json:"build_error,omitempty"`

	// TestResult is the aggregate label: success, fail, not run, skipped,
	// not compiling, or a custom string.
	TestResult string `json:"test_result"`
	TestOutput string `json:"test_output,omitempty"`
	TestError  string `json:"test_error,omitempty"`

	// TestConclusion is the one-sentence outcome, e.g.
	// "Success: No regression failure (3 test(s) passed)".
	TestConclusion string `json:"test_conclusion,omitempty"`

	// RunnerScripts names the custom scripts used instead of the default test command.
	RunnerScripts []string `json:"runner_scripts,omitempty"`

	// RunSettings is the run-settings file passed to the test command, if any.
	RunSettings string `json:"runsettings,omitempty"`

	// Feed is the package feed label active for this run.
	Feed string `json:"feed,omitempty"`

	// RunnerExpectations are carried forward from earlier results untouched.
	RunnerExpectations []string `json:"runner_expectations,omitempty"`

	// LastRun is the UTC timestamp of the run, second precision.
	LastRun string `json:"last_run"`
}

// Key returns the merge key: issue number plus lower-cased project path.
func (r ProjectResult) Key() string {
	return ResultKey(r.Number, r.ProjectPath)
}

// ResultKey builds the merge key for an (issue, project path) pair.
func ResultKey(number int, projectPath string) string {
	return fmt.Sprintf("%d|%s", number, strings.ToLower(projectPath))
}

// CompileFailed reports whether restore or build failed for this project.
func (r ProjectResult) CompileFailed() bool {
	return r.RestoreResult == StepFailed || r.BuildResult == StepFailed
}
