package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func noEnv(string) string { return "" }

func TestResolveRoot_RepositoryJSONInDataDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(DataDir(root), RepositoryFile), `{"owner":"nunit","name":"nunit"}`)
	nested := filepath.Join(root, "Issue12", "src")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := ResolveRoot(fs.NewRealFS(), nested, noEnv)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestResolveRoot_GitFallback(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "Issue3")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := ResolveRoot(fs.NewRealFS(), nested, noEnv)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestResolveRoot_Env(t *testing.T) {
	// /proc is never inside a repository.
	env := func(k string) string {
		if k == RootEnv {
			return "/srv/issues"
		}
		return ""
	}
	got, err := ResolveRoot(fs.NewRealFS(), "/proc", env)
	require.NoError(t, err)
	assert.Equal(t, "/srv/issues", got)

	_, err = ResolveRoot(fs.NewRealFS(), "/proc", noEnv)
	assert.Equal(t, errors.ENoRoot, errors.GetCode(err))
}

func TestLoadRepositoryConfig(t *testing.T) {
	tests := []struct {
		name     string
		location func(root string) string
		content  string
		wantCode errors.Code
		want     RepositoryConfig
	}{
		{
			name:     "data dir with comments",
			location: func(r string) string { return filepath.Join(DataDir(r), RepositoryFile) },
			content:  "{\n  // tracked repo\n  \"owner\": \"nunit\",\n  \"name\": \"nunit\",\n}",
			want:     RepositoryConfig{Owner: "nunit", Name: "nunit"},
		},
		{
			name:     "tools fallback",
			location: func(r string) string { return filepath.Join(r, "Tools", RepositoryFile) },
			content:  `{"owner":"nunit","name":"nunit3-vs-adapter"}`,
			want:     RepositoryConfig{Owner: "nunit", Name: "nunit3-vs-adapter"},
		},
		{
			name:     "missing name",
			location: func(r string) string { return filepath.Join(r, RepositoryFile) },
			content:  `{"owner":"nunit"}`,
			wantCode: errors.EInvalidConfig,
		},
		{
			name:     "invalid json",
			location: func(r string) string { return filepath.Join(r, RepositoryFile) },
			content:  `{"owner":`,
			wantCode: errors.EInvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, tt.location(root), tt.content)

			got, err := LoadRepositoryConfig(fs.NewRealFS(), root)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadRepositoryConfig_Missing(t *testing.T) {
	_, err := LoadRepositoryConfig(fs.NewRealFS(), t.TempDir())
	assert.Equal(t, errors.EInvalidConfig, errors.GetCode(err))
	assert.NotEmpty(t, errors.GetHint(err))
}

func TestParseFeed(t *testing.T) {
	f, err := ParseFeed("beta")
	require.NoError(t, err)
	assert.Equal(t, FeedBeta, f)

	_, err = ParseFeed("nightly")
	assert.Error(t, err)

	assert.True(t, SameFeed("alpha", "Alpha"))
	assert.False(t, SameFeed("Stable", "Beta"))
}

func TestRunOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultRunOptions().Validate())
	for _, scope := range []string{"open", "closed", "new", "new-and-failed"} {
		o := DefaultRunOptions()
		o.Scope = scope
		assert.NoError(t, o.Validate(), scope)
	}

	tests := []struct {
		name   string
		mutate func(o *RunOptions)
		msg    string
	}{
		{"timeout too small", func(o *RunOptions) { o.Timeout = time.Second }, "timeout"},
		{"timeout too large", func(o *RunOptions) { o.Timeout = 48 * time.Hour }, "timeout"},
		{"bad scope", func(o *RunOptions) { o.Scope = "draft" }, "scope"},
		{"bad test types", func(o *RunOptions) { o.TestTypes = "gui" }, "testtypes"},
		{"netfx exclusive", func(o *RunOptions) { o.SkipNetFx, o.OnlyNetFx = true, true }, "mutually exclusive"},
		{"non-positive issue", func(o *RunOptions) { o.IssueNumbers = []int{3, 0} }, "positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultRunOptions()
			tt.mutate(&o)
			err := o.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.EInvalidOptions, errors.GetCode(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestNewLogger_JSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, true)
	logger.Debug("hello", "issue", 12)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"issue":12`)
}
