// Package dotnet provides the default filesystem and dotnet CLI
// collaborators used by the orchestrator: issue discovery, marker files,
// project analysis, framework upgrade, package update and stage commands.
package dotnet

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/NielsdaWheelz/issuerunner/internal/errors"
)

// IssueMetadataFile is the per-issue metadata file inside an issue folder.
const IssueMetadataFile = "issue_metadata.json"

var issueNumberRe = regexp.MustCompile(`\d+`)

// Discovery finds Issue* folders directly under Root.
type Discovery struct {
	Root   string
	Logger *slog.Logger
}

// Discover maps issue numbers to absolute folder paths. Folders whose name
// carries no number are ignored. A missing root yields an empty map.
func (d *Discovery) Discover() (map[int]string, error) {
	out := make(map[int]string)
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		if os.IsNotExist(err) {
			d.logger().Warn("root does not exist", "path", d.Root)
			return out, nil
		}
		return nil, errors.WrapWithDetails(errors.EDiscoveryFailed, "failed to list issue folders", err,
			map[string]string{"path": d.Root})
	}

	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "Issue") {
			continue
		}
		m := issueNumberRe.FindString(e.Name())
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		out[n] = filepath.Join(d.Root, e.Name())
	}
	if len(out) == 0 {
		d.logger().Warn("no Issue* folders found", "path", d.Root)
	}
	d.logger().Debug("discovered issue folders", "count", len(out))
	return out, nil
}

func (d *Discovery) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// PackageRef is a package id and version as stored in issue_metadata.json.
type PackageRef struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// IssueMetadata is one entry of an issue folder's issue_metadata.json.
type IssueMetadata struct {
	Number           int          `json:"number"`
	Title            string       `json:"title,omitempty"`
	ProjectPath      string       `json:"project_path,omitempty"`
	TargetFrameworks []string     `json:"target_frameworks,omitempty"`
	Packages         []PackageRef `json:"packages,omitempty"`
}

// LoadIssueMetadata returns the entries for issue id from the folder's
// issue_metadata.json. A missing file yields nil.
func LoadIssueMetadata(jobDir string, id int) ([]IssueMetadata, error) {
	data, err := os.ReadFile(filepath.Join(jobDir, IssueMetadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var all []IssueMetadata
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	var out []IssueMetadata
	for _, m := range all {
		if m.Number == id {
			out = append(out, m)
		}
	}
	return out, nil
}

// FindProjectFiles returns every *.csproj under dir, skipping bin and obj.
func FindProjectFiles(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := strings.ToLower(d.Name())
			if path != dir && (name == "bin" || name == "obj") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".csproj") {
			out = append(out, path)
		}
		return nil
	})
	return out
}

// ProjectFiles returns the artifacts of an issue: the project_path entries
// of issue_metadata.json that exist on disk, or every *.csproj in the folder
// when there are none.
func (d *Discovery) ProjectFiles(jobDir string, id int) []string {
	entries, err := LoadIssueMetadata(jobDir, id)
	if err != nil {
		d.logger().Debug("failed to read issue_metadata.json for project paths", "issue", id, "error", err)
	}

	seen := make(map[string]bool)
	var out []string
	for _, m := range entries {
		if strings.TrimSpace(m.ProjectPath) == "" {
			continue
		}
		full := filepath.Join(jobDir, filepath.FromSlash(m.ProjectPath))
		key := strings.ToLower(full)
		if seen[key] {
			continue
		}
		if _, err := os.Stat(full); err == nil {
			seen[key] = true
			out = append(out, full)
		}
	}
	if len(out) > 0 {
		return out
	}
	return FindProjectFiles(jobDir)
}
