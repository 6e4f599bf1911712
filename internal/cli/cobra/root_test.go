package cobra

import (
	"bytes"
	"strings"
	"testing"

	"github.com/NielsdaWheelz/issuerunner/internal/errors"
)

// executeCmd runs the root command with the given args and returns stdout, stderr, and error.
func executeCmd(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	rootCmd := NewRootCmd()
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRoot_Help(t *testing.T) {
	tests := []string{"--help", "-h"}
	for _, arg := range tests {
		t.Run(arg, func(t *testing.T) {
			stdout, _, err := executeCmd(arg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !strings.Contains(stdout, "issuerunner") {
				t.Error("expected 'issuerunner' in help output")
			}
			if !strings.Contains(stdout, "Available Commands") {
				t.Error("expected 'Available Commands' in help output")
			}
			for _, cmd := range []string{"run", "diff", "baseline", "check", "merge", "report", "reset-packages", "completion"} {
				if !strings.Contains(stdout, cmd) {
					t.Errorf("expected '%s' command in help output", cmd)
				}
			}
		})
	}
}

func TestRoot_Version(t *testing.T) {
	tests := []string{"--version", "-v", "version"}
	for _, arg := range tests {
		t.Run(arg, func(t *testing.T) {
			stdout, _, err := executeCmd(arg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(stdout, "issuerunner") {
				t.Error("expected 'issuerunner' in version output")
			}
		})
	}
}

func TestRoot_UnknownCommand(t *testing.T) {
	_, _, err := executeCmd("nonexistent")
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected 'unknown command' in error, got: %v", err)
	}
}

func TestRunCmd_Help(t *testing.T) {
	stdout, _, err := executeCmd("run", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, flag := range []string{"--issues", "--scope", "--test-types", "--rerun-failed", "--feed",
		"--nunit-only", "--timeout", "--skip-netfx", "--only-netfx"} {
		if !strings.Contains(stdout, flag) {
			t.Errorf("expected '%s' in run help output", flag)
		}
	}
}

func TestDiffCmd_Help(t *testing.T) {
	stdout, _, err := executeCmd("diff", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "--format") {
		t.Error("expected '--format' flag in help output")
	}
	if !strings.Contains(stdout, "compile_to_fail") {
		t.Error("expected change categories in help output")
	}
}

func TestReportCmd_Help(t *testing.T) {
	stdout, _, err := executeCmd("report", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "--output") || !strings.Contains(stdout, "TestReport.md") {
		t.Errorf("expected --output and default path in report help, got: %s", stdout)
	}
}

func TestResetPackagesCmd_InvalidIssues(t *testing.T) {
	_, _, err := executeCmd("reset-packages", "--issues", "abc")
	if err == nil {
		t.Fatal("expected error for non-numeric --issues")
	}
	if code := errors.GetCode(err); code != errors.EUsage {
		t.Errorf("expected E_USAGE, got %s", code)
	}
}

func TestRunCmd_InvalidFlagValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"feed", []string{"run", "--feed", "nightly"}},
		{"scope", []string{"run", "--scope", "pending"}},
		{"test-types", []string{"run", "--test-types", "unit"}},
		{"issues", []string{"run", "--issues", "1,x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCmd(tt.args...)
			if err == nil {
				t.Fatal("expected error for invalid flag value")
			}
			if errors.GetCode(err) != errors.EUsage {
				t.Errorf("code = %q, want %q", errors.GetCode(err), errors.EUsage)
			}
			if errors.ExitCode(err) != 2 {
				t.Errorf("exit code = %d, want 2", errors.ExitCode(err))
			}
		})
	}
}

func TestRunCmd_NetFxFlagsExclusive(t *testing.T) {
	_, _, err := executeCmd("run", "--skip-netfx", "--only-netfx")
	if err == nil {
		t.Fatal("expected error for --skip-netfx with --only-netfx")
	}
	if !strings.Contains(err.Error(), "only-netfx") {
		t.Errorf("expected flag names in error, got: %v", err)
	}
}

func TestDiffCmd_InvalidFormat(t *testing.T) {
	_, _, err := executeCmd("diff", "--format", "xml")
	if errors.GetCode(err) != errors.EUsage {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.EUsage)
	}
}

func TestMergeCmd_MissingArgs(t *testing.T) {
	_, _, err := executeCmd("merge", "a", "b")
	if err == nil {
		t.Fatal("expected error when outDir is missing")
	}
	if !strings.Contains(err.Error(), "accepts 3 arg") {
		t.Errorf("expected arg count error, got: %v", err)
	}
}

func TestCheckCmd_NoResults(t *testing.T) {
	tmpDir := t.TempDir()
	_, _, err := executeCmd("check", "--root", tmpDir)
	if err == nil {
		t.Fatal("expected error when results.json is missing")
	}
	if errors.GetCode(err) != errors.ENoResults {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ENoResults)
	}
}

func TestBaselineCmd_NoResults(t *testing.T) {
	tmpDir := t.TempDir()
	_, _, err := executeCmd("baseline", "--root", tmpDir)
	if errors.GetCode(err) != errors.ENoResults {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ENoResults)
	}
}

func TestCompletionCmd(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			stdout, _, err := executeCmd("completion", shell)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(stdout, "issuerunner") {
				t.Errorf("expected 'issuerunner' in %s completion output", shell)
			}
		})
	}
}

func TestCompletionCmd_UnsupportedShell(t *testing.T) {
	_, _, err := executeCmd("completion", "tcsh")
	if err == nil {
		t.Fatal("expected error for unsupported shell")
	}
	if errors.GetCode(err) != errors.EUsage {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.EUsage)
	}
}

func TestGlobalVerboseFlag(t *testing.T) {
	globalOpts = GlobalOpts{}
	t.Cleanup(func() { globalOpts = GlobalOpts{} })

	_, _, err := executeCmd("--verbose", "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !GetGlobalOpts().Verbose {
		t.Error("expected verbose to be set")
	}
}

func TestEnumValue(t *testing.T) {
	var scope string
	v := newEnumValue(&scope, "all", "all", "open", "closed")
	if scope != "all" {
		t.Fatalf("default = %q, want all", scope)
	}
	if err := v.Set(" Closed "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scope != "closed" {
		t.Errorf("scope = %q, want closed", scope)
	}
	if err := v.Set("pending"); err == nil {
		t.Error("expected error for unknown value")
	}
}
