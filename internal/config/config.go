// Package config resolves the repository root and data directory and loads
// repository.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/jsonc"

	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

// RootEnv names the environment variable consulted when no repository
// marker is found walking up from the working directory.
const RootEnv = "ISSUERUNNER_ROOT"

// RepositoryFile is the repository config file name.
const RepositoryFile = "repository.json"

// RepositoryConfig identifies the tracked repository.
type RepositoryConfig struct {
	Owner string `json:"owner" validate:"required"`
	Name  string `json:"name" validate:"required"`
}

// DataDir returns <root>/.nunit/IssueRunner.
func DataDir(root string) string {
	return filepath.Join(root, ".nunit", "IssueRunner")
}

// repositoryCandidates lists repository.json locations in lookup order.
func repositoryCandidates(root string) []string {
	return []string{
		filepath.Join(DataDir(root), RepositoryFile),
		filepath.Join(root, "Tools", RepositoryFile),
		filepath.Join(root, RepositoryFile),
	}
}

// ResolveRoot walks up from cwd looking for a repository.json (in any of its
// accepted locations) or a .git entry. If neither is found, ISSUERUNNER_ROOT
// is used when set. Returns E_NO_ROOT otherwise.
func ResolveRoot(filesystem fs.FS, cwd string, getenv func(string) string) (string, error) {
	dir, err := filepath.Abs(cwd)
	if err != nil {
		return "", errors.Wrap(errors.ENoRoot, "failed to resolve working directory", err)
	}
	for {
		for _, candidate := range repositoryCandidates(dir) {
			if fs.Exists(filesystem, candidate) {
				return dir, nil
			}
		}
		if fs.Exists(filesystem, filepath.Join(dir, ".git")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if getenv != nil {
		if env := getenv(RootEnv); env != "" {
			return env, nil
		}
	}
	return "", errors.NewWithDetails(errors.ENoRoot, "no repository root found",
		map[string]string{"path": cwd, "hint": "run inside the issues repository or set " + RootEnv})
}

// HasRepositoryConfig reports whether any accepted repository.json location exists.
func HasRepositoryConfig(filesystem fs.FS, root string) bool {
	for _, candidate := range repositoryCandidates(root) {
		if fs.Exists(filesystem, candidate) {
			return true
		}
	}
	return false
}

// LoadRepositoryConfig reads repository.json from the first accepted
// location. Comments and trailing commas are allowed.
func LoadRepositoryConfig(filesystem fs.FS, root string) (RepositoryConfig, error) {
	var path string
	var data []byte
	for _, candidate := range repositoryCandidates(root) {
		b, err := filesystem.ReadFile(candidate)
		if err == nil {
			path, data = candidate, b
			break
		}
		if !os.IsNotExist(err) {
			return RepositoryConfig{}, errors.WrapWithDetails(errors.EInvalidConfig, "failed to read repository.json", err,
				map[string]string{"path": candidate})
		}
	}
	if path == "" {
		return RepositoryConfig{}, errors.NewWithDetails(errors.EInvalidConfig, "repository.json not found",
			map[string]string{
				"path": repositoryCandidates(root)[0],
				"hint": `create it with {"owner": "nunit", "name": "nunit"}`,
			})
	}

	var cfg RepositoryConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return RepositoryConfig{}, errors.WrapWithDetails(errors.EInvalidConfig, "invalid json in repository.json", err,
			map[string]string{"path": path})
	}
	if err := validator.New().Struct(cfg); err != nil {
		return RepositoryConfig{}, errors.WrapWithDetails(errors.EInvalidConfig, "repository.json: owner and name are required", err,
			map[string]string{"path": path})
	}
	return cfg, nil
}
