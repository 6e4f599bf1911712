package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeRemove_FileUnderPrefix(t *testing.T) {
	prefix := t.TempDir()
	target := filepath.Join(prefix, "results.json")
	if err := os.WriteFile(target, []byte("[]"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SafeRemove(target, prefix); err != nil {
		t.Fatalf("SafeRemove failed: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("target still exists after SafeRemove")
	}
}

func TestSafeRemove_OutsidePrefix(t *testing.T) {
	tmpDir := t.TempDir()
	prefix := filepath.Join(tmpDir, "data")
	target := filepath.Join(tmpDir, "other", "results.json")
	if err := os.MkdirAll(prefix, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := SafeRemove(target, prefix)
	if _, ok := err.(*ErrNotUnderPrefix); !ok {
		t.Fatalf("expected ErrNotUnderPrefix, got %T: %v", err, err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Error("target outside prefix was removed")
	}
}

func TestSafeRemove_TargetEqualsPrefix(t *testing.T) {
	prefix := t.TempDir()
	if err := SafeRemove(prefix, prefix); err == nil {
		t.Error("expected error when target equals prefix")
	}
}

func TestSafeRemove_MissingTarget(t *testing.T) {
	prefix := t.TempDir()
	if err := SafeRemove(filepath.Join(prefix, "nope.json"), prefix); err != nil {
		t.Errorf("missing target should be a no-op, got %v", err)
	}
}

func TestIsSubpath(t *testing.T) {
	tests := []struct {
		name   string
		target string
		prefix string
		want   bool
	}{
		{"valid subpath", "/a/b/c/d", "/a/b", true},
		{"equal paths", "/a/b", "/a/b", false},
		{"outside prefix", "/a/c", "/a/b", false},
		{"partial name match", "/a/bcd", "/a/b", false},
		{"direct child", "/a/b/c", "/a/b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSubpath(tt.target, tt.prefix); got != tt.want {
				t.Errorf("IsSubpath(%q, %q) = %v, want %v", tt.target, tt.prefix, got, tt.want)
			}
		})
	}
}

func TestRelOrBase(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		target string
		want   string
	}{
		{"nested", "/repo/Issue12", "/repo/Issue12/src/Tests/Tests.csproj", "src/Tests/Tests.csproj"},
		{"direct", "/repo/Issue12", "/repo/Issue12/Issue12.csproj", "Issue12.csproj"},
		{"outside", "/repo/Issue12", "/elsewhere/X.csproj", "X.csproj"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelOrBase(tt.base, tt.target); got != tt.want {
				t.Errorf("RelOrBase() = %q, want %q", got, tt.want)
			}
		})
	}
}
