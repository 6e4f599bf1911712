package dotnet

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NielsdaWheelz/issuerunner/internal/config"
	"github.com/NielsdaWheelz/issuerunner/internal/exec"
)

// Pre-release package source registered for the alpha feed.
const (
	PrereleaseSourceName = "nunit-myget"
	PrereleaseSourceURL  = "https://www.myget.org/F/nunit/api/v3/index.json"
)

const sourceCommandTimeout = 30 * time.Second

// NUnitPackages are the packages a run targets.
var NUnitPackages = []string{"NUnit", "NUnit3TestAdapter", "Microsoft.NET.Test.Sdk"}

// targetVersions are the pinned versions applied by direct updates. The
// registry is never queried.
var targetVersions = map[config.Feed]map[string]string{
	config.FeedStable: {"NUnit": "4.4.0", "NUnit3TestAdapter": "6.0.0", "Microsoft.NET.Test.Sdk": "18.0.1"},
}

// PackageUpdater updates and resets package versions in project files.
type PackageUpdater struct {
	Runner exec.CommandRunner
	Logger *slog.Logger
	// WorkDir is where nuget source commands run.
	WorkDir string
}

// TargetVersions returns the NUnit package versions direct updates apply
// for feed. Feeds without pins fall back to the stable set.
func (p *PackageUpdater) TargetVersions(feed config.Feed) map[string]string {
	pins, ok := targetVersions[feed]
	if !ok {
		pins = targetVersions[config.FeedStable]
	}
	out := make(map[string]string, len(pins))
	for k, v := range pins {
		out[k] = v
	}
	return out
}

// Update moves the project's packages forward for feed. With nunitOnly the
// NUnit package versions are rewritten directly; otherwise `dotnet outdated
// --upgrade` runs in the project directory, after a direct pre-pass on the
// stable feed. The returned error is reserved for start failures.
func (p *PackageUpdater) Update(ctx context.Context, artifact string, nunitOnly bool, feed config.Feed, timeout time.Duration) (exec.CmdResult, error) {
	if feed == config.FeedAlpha {
		if res, err := p.ensurePrereleaseSource(ctx, filepath.Dir(artifact), timeout); err != nil || !res.OK() {
			return res, err
		}
	}

	if nunitOnly {
		return p.updateDirect(artifact, feed), nil
	}

	if feed == config.FeedStable {
		if res := p.updateDirect(artifact, feed); !res.OK() {
			p.logger().Debug("stable pre-pass package update failed", "project", artifact, "error", res.Stderr)
		}
	}

	args := []string{"outdated", "--upgrade"}
	switch feed {
	case config.FeedStable:
		args = append(args, "--pre-release", "Never")
	case config.FeedBeta, config.FeedAlpha:
		args = append(args, "--pre-release", "Always")
	}
	return p.Runner.Run(ctx, "dotnet", args, exec.RunOpts{Dir: filepath.Dir(artifact), Timeout: timeout})
}

func (p *PackageUpdater) updateDirect(artifact string, feed config.Feed) exec.CmdResult {
	data, err := os.ReadFile(artifact)
	if err != nil {
		return exec.CmdResult{ExitCode: 1, Stderr: err.Error()}
	}
	out, changed := SetPackageVersionsText(string(data), p.TargetVersions(feed))
	if len(changed) == 0 {
		return exec.CmdResult{Stdout: "No NUnit packages to update"}
	}
	if err := writeKeepingMode(artifact, []byte(out)); err != nil {
		return exec.CmdResult{ExitCode: 1, Stderr: err.Error()}
	}
	return exec.CmdResult{Stdout: "Updated " + strings.Join(changed, ", ") + " via text substitution"}
}

func (p *PackageUpdater) listSources(ctx context.Context, dir string, timeout time.Duration) (exec.CmdResult, error) {
	if timeout <= 0 || timeout > sourceCommandTimeout {
		timeout = sourceCommandTimeout
	}
	return p.Runner.Run(ctx, "dotnet", []string{"nuget", "list", "source"}, exec.RunOpts{Dir: dir, Timeout: timeout})
}

func (p *PackageUpdater) ensurePrereleaseSource(ctx context.Context, dir string, timeout time.Duration) (exec.CmdResult, error) {
	list, err := p.listSources(ctx, dir, timeout)
	if err == nil && list.OK() && strings.Contains(list.Stdout, PrereleaseSourceName) {
		return exec.CmdResult{Stdout: "pre-release source already configured"}, nil
	}

	res, err := p.Runner.Run(ctx, "dotnet",
		[]string{"nuget", "add", "source", PrereleaseSourceURL, "--name", PrereleaseSourceName},
		exec.RunOpts{Dir: dir, Timeout: sourceCommandTimeout})
	if err != nil {
		return res, err
	}
	if !res.OK() {
		p.logger().Warn("failed to add pre-release source", "error", strings.TrimSpace(res.Stderr))
	}
	return res, nil
}

// RemovePrereleaseSource unregisters the alpha feed source when present.
func (p *PackageUpdater) RemovePrereleaseSource(ctx context.Context) error {
	list, err := p.listSources(ctx, p.WorkDir, sourceCommandTimeout)
	if err != nil {
		return err
	}
	if !strings.Contains(strings.ToLower(list.Stdout), PrereleaseSourceName) {
		return nil
	}
	res, err := p.Runner.Run(ctx, "dotnet", []string{"nuget", "remove", "source", PrereleaseSourceName},
		exec.RunOpts{Dir: p.WorkDir, Timeout: sourceCommandTimeout})
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("dotnet nuget remove source exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	p.logger().Info("removed pre-release package source", "source", PrereleaseSourceName)
	return nil
}

// Reset restores the first project of an issue to the frameworks and
// package versions recorded in its issue_metadata.json. An issue without
// metadata or projects is left alone.
func (p *PackageUpdater) Reset(_ context.Context, jobDir string, id int) error {
	entries, err := LoadIssueMetadata(jobDir, id)
	if err != nil {
		return fmt.Errorf("load %s: %w", IssueMetadataFile, err)
	}
	if len(entries) == 0 {
		p.logger().Debug("no issue metadata; reset skipped", "issue", id)
		return nil
	}
	meta := entries[0]

	projects := FindProjectFiles(jobDir)
	if len(projects) == 0 {
		p.logger().Debug("no project files; reset skipped", "issue", id)
		return nil
	}
	project := projects[0]

	data, err := os.ReadFile(project)
	if err != nil {
		return err
	}
	text, fwChanged := SetFrameworksText(string(data), meta.TargetFrameworks)

	versions := make(map[string]string, len(meta.Packages))
	for _, pkg := range meta.Packages {
		versions[pkg.Name] = pkg.Version
	}
	text, pkgChanged := SetPackageVersionsText(text, versions)

	if !fwChanged && len(pkgChanged) == 0 {
		return nil
	}
	if err := writeKeepingMode(project, []byte(text)); err != nil {
		return err
	}
	p.logger().Info("reset to metadata versions", "issue", id, "project", filepath.Base(project))
	return nil
}

func (p *PackageUpdater) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
