package outcome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int { return &n }

func TestExtractCounts(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		passed *int
		failed *int
	}{
		{
			name:   "vstest summary",
			text:   "Passed!  - Failed: 0, Passed: 3, Skipped: 0, Total: 3",
			passed: intp(3),
			failed: intp(0),
		},
		{
			name:   "derive failed from total",
			text:   "Test run summary\n  total: 6\n  Passed: 4\n",
			passed: intp(4),
			failed: intp(2),
		},
		{
			name:   "derived failed never negative",
			text:   "total: 2\nPassed: 5",
			passed: intp(5),
			failed: intp(0),
		},
		{
			name:   "mtp succeeded wording",
			text:   "Test run summary: Passed!\n  total: 6\n  failed: 0\n  succeeded: 6",
			passed: intp(6),
			failed: intp(0),
		},
		{
			name:   "sums across projects",
			text:   "=== A ===\nFailed: 1, Passed: 2\n=== B ===\nFailed: 0, Passed: 5",
			passed: intp(7),
			failed: intp(1),
		},
		{
			name:   "old console failures wording",
			text:   "Test Count: 4, Passed: 3, Failures: 1",
			passed: intp(3),
			failed: intp(1),
		},
		{
			name: "nothing recognisable",
			text: "Build succeeded.\n0 Warning(s)",
		},
		{
			name: "empty",
			text: "   ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCounts(tt.text)
			assert.Equal(t, tt.passed, got.Passed, "passed")
			assert.Equal(t, tt.failed, got.Failed, "failed")
		})
	}
}

func TestCountsString(t *testing.T) {
	assert.Equal(t, "", Counts{}.String())
	assert.Equal(t, "3 test(s) passed", Counts{Passed: intp(3), Failed: intp(0)}.String())
	assert.Equal(t, "4 passed, 2 failed", Counts{Passed: intp(4), Failed: intp(2)}.String())
	assert.Equal(t, "0 passed, 1 failed", Counts{Failed: intp(1)}.String())
	assert.Equal(t, "2 test(s) passed", Counts{Passed: intp(2)}.String())
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name     string
		updateOK bool
		text     string
		want     string
	}{
		{"update failed wins", false, "error CS0246", ReasonPackageUpdate},
		{"compiler error", true, "Foo.cs(3,1): error CS0246: type not found", ReasonCompilation},
		{"build failed", true, "Build FAILED.", ReasonCompilation},
		{"no tests", true, "No test is available in Foo.dll", ReasonNoTests},
		{"aborted", true, "Test Run Aborted.", ReasonNoTests},
		{"count mismatch", true, "Expected 6 tests but found 3 tests", "Expected 6 tests, found 3"},
		{"equal counts are not a mismatch", true, "expected 3 tests, found 3 tests", ReasonGeneric},
		{"assertion", true, "Failed! - Failed: 1, Passed: 0", ReasonAssertions},
		{"expected actual", true, "Expected: 4\n  But was... Actual: 5", ReasonAssertions},
		{"exception", true, "System.NullReferenceException: Object reference", ReasonException},
		{"stack frame", true, "   at System.Linq.Enumerable.First()", ReasonException},
		{"generic", true, "exit code 1", ReasonGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FailureReason(tt.updateOK, tt.text))
		})
	}
}

func TestConclusion(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want string
	}{
		{
			name: "success with counts",
			in:   Input{Success: true, UpdateOK: true, Text: "Failed: 0, Passed: 3, Skipped: 0, Total: 3"},
			want: "Success: No regression failure (3 test(s) passed)",
		},
		{
			name: "success without counts",
			in:   Input{Success: true, UpdateOK: true, Text: "done"},
			want: "Success: No regression failure",
		},
		{
			name: "restore failure overrides heuristics",
			in:   Input{UpdateOK: true, FailedStage: StageRestore, Text: "error CS1234"},
			want: "Failure: Restore failed",
		},
		{
			name: "build timeout",
			in:   Input{UpdateOK: true, FailedStage: StageBuild, TimedOut: true, Text: "Process timed out"},
			want: "Failure: Build failed (timed out)",
		},
		{
			name: "test failure with counts",
			in:   Input{UpdateOK: true, FailedStage: StageTest, Text: "Failed! - Failed: 2, Passed: 4, Skipped: 0, Total: 6"},
			want: "Failure: Test assertions failed (4 passed, 2 failed)",
		},
		{
			name: "update failure on test stage",
			in:   Input{UpdateOK: false, FailedStage: StageTest, Text: ""},
			want: "Failure: Package update failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Conclusion(tt.in))
		})
	}
}
