package outcome

import (
	"fmt"
	"regexp"
	"strings"
)

// Failure reasons.
const (
	ReasonPackageUpdate = "Package update failed"
	ReasonCompilation   = "Compilation failed"
	ReasonNoTests       = "No tests found"
	ReasonAssertions    = "Test assertions failed"
	ReasonException     = "Tests threw exception"
	ReasonGeneric       = "Tests failed"
	ReasonRestore       = "Restore failed"
	ReasonBuild         = "Build failed"
)

var (
	compileMarkers   = []string{"error cs", "build failed", "compilation failed"}
	noTestsMarkers   = []string{"no test is available", "no tests found", "test run aborted"}
	exceptionMarkers = []string{"exception:", "stacktrace", "at system."}

	expectedTestsRe = regexp.MustCompile(`(?i)expected.*?(\d+)\s+tests?`)
	foundTestsRe    = regexp.MustCompile(`(?i)found.*?(\d+)\s+tests?`)
)

// FailureReason classifies a failed run from its combined output.
// Rules, first match wins (substring checks ignore case):
//  1. package update failed => "Package update failed"
//  2. compiler error marker or "build failed"/"compilation failed" => "Compilation failed"
//  3. no tests discovered or run aborted => "No tests found"
//  4. "expected N tests" and "found M tests" with N != M => "Expected N tests, found M"
//  5. assertion markers => "Test assertions failed"
//  6. exception or stack trace markers => "Tests threw exception"
//  7. otherwise => "Tests failed"
func FailureReason(updateOK bool, text string) string {
	if !updateOK {
		return ReasonPackageUpdate
	}

	lower := strings.ToLower(text)

	if containsAny(lower, compileMarkers) {
		return ReasonCompilation
	}
	if containsAny(lower, noTestsMarkers) {
		return ReasonNoTests
	}
	if expected, found, ok := testCountMismatch(text); ok {
		return fmt.Sprintf("Expected %s tests, found %s", expected, found)
	}
	if strings.Contains(lower, "failed!") || strings.Contains(lower, "assertion") ||
		(strings.Contains(lower, "expected:") && strings.Contains(lower, "actual:")) {
		return ReasonAssertions
	}
	if containsAny(lower, exceptionMarkers) {
		return ReasonException
	}
	return ReasonGeneric
}

func testCountMismatch(text string) (expected, found string, ok bool) {
	em := expectedTestsRe.FindStringSubmatch(text)
	fm := foundTestsRe.FindStringSubmatch(text)
	if em == nil || fm == nil || em[1] == fm[1] {
		return "", "", false
	}
	return em[1], fm[1], true
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
