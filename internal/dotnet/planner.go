package dotnet

import (
	"os"
	"path/filepath"

	"github.com/NielsdaWheelz/issuerunner/internal/pipeline"
)

// RunSettingsFile is the optional run-settings file in an issue folder.
const RunSettingsFile = ".runsettings"

// Planner selects dotnet CLI commands for a project. It implements
// pipeline.Planner.
type Planner struct {
	Analyzer *Analyzer
}

// Plan returns custom scripts as the test stage when the issue folder has
// any, with restore and build left out. Otherwise restore, build and test
// run in the project directory against the sole solution there, or the
// project itself.
func (p *Planner) Plan(artifact, jobDir string) (pipeline.Plan, error) {
	if scripts := p.Analyzer.CustomScripts(jobDir); len(scripts) > 0 {
		plan := pipeline.Plan{}
		for _, s := range scripts {
			plan.Test = append(plan.Test, pipeline.Step{Name: s, Dir: jobDir})
			plan.Scripts = append(plan.Scripts, filepath.Base(s))
		}
		return plan, nil
	}

	dir := filepath.Dir(artifact)
	target, isSolution := buildTarget(artifact)

	plan := pipeline.Plan{
		Restore: &pipeline.Step{Name: "dotnet", Args: []string{"restore", target}, Dir: dir},
		Build:   &pipeline.Step{Name: "dotnet", Args: []string{"build", "--no-restore", target}, Dir: dir},
	}

	testArgs := []string{"test", "--no-build", "--no-restore"}
	if p.Analyzer.UsesTestingPlatform(artifact) {
		if isSolution {
			testArgs = append(testArgs, "--solution", target)
		} else {
			testArgs = append(testArgs, "--project", target)
		}
	} else {
		testArgs = append(testArgs, target)
	}

	rs := filepath.Join(jobDir, RunSettingsFile)
	if _, err := os.Stat(rs); err == nil {
		testArgs = append(testArgs, "--settings", rs)
		plan.RunSettings = rs
	}

	plan.Test = []pipeline.Step{{Name: "dotnet", Args: testArgs, Dir: dir}}
	return plan, nil
}

// buildTarget returns the file name to hand to dotnet: the only *.sln next
// to the project, else the project file.
func buildTarget(artifact string) (string, bool) {
	slns, _ := filepath.Glob(filepath.Join(filepath.Dir(artifact), "*.sln"))
	if len(slns) == 1 {
		return filepath.Base(slns[0]), true
	}
	return filepath.Base(artifact), false
}
