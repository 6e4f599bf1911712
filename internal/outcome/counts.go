// Package outcome turns captured tool output into pass/fail counts, a
// failure reason and the one-sentence conclusion stored with each result.
//
// The patterns here track the summary wording of the test runners seen in
// practice (vstest, the NUnit console, Microsoft.Testing.Platform). When a
// runner changes its wording, this table is what needs updating.
package outcome

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Counts holds pass/fail counts. A nil field means the count could not be
// found, which is different from zero.
type Counts struct {
	Passed *int
	Failed *int
}

// Present reports whether any count was extracted.
func (c Counts) Present() bool {
	return c.Passed != nil || c.Failed != nil
}

// String renders "N test(s) passed" or "N passed, M failed" when M > 0.
// Returns "" when no counts were found.
func (c Counts) String() string {
	if !c.Present() {
		return ""
	}
	passed := 0
	if c.Passed != nil {
		passed = *c.Passed
	}
	if c.Failed != nil && *c.Failed > 0 {
		return fmt.Sprintf("%d passed, %d failed", passed, *c.Failed)
	}
	return fmt.Sprintf("%d test(s) passed", passed)
}

var (
	passedPatterns = compileAll(
		`Passed:\s*(\d+)`,
		`Succeeded:\s*(\d+)`,
		`Tests run:\s*\d+.*?Passed:\s*(\d+)`,
	)
	passedFallbackPatterns = compileAll(
		`Total tests:\s*\d+.*?Passed:\s*(\d+)`,
	)
	failedPatterns = compileAll(
		`Failed:\s*(\d+)`,
		`Failures:\s*(\d+)`,
		`Tests run:\s*\d+.*?Failed:\s*(\d+)`,
	)
	totalPatterns = compileAll(
		`total:\s*(\d+)`,
		`Total\s+tests:\s*(\d+)`,
		`Tests\s+run:\s*(\d+)`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// ExtractCounts scans text for runner summary lines. For each count the
// first pattern with any match wins, and all of its matches are summed so
// output concatenated from several projects aggregates. When no failed
// count is present but total and passed are, failed = max(total-passed, 0).
func ExtractCounts(text string) Counts {
	if strings.TrimSpace(text) == "" {
		return Counts{}
	}

	passed := sumFirstMatching(text, passedPatterns)
	if passed == nil {
		passed = sumFirstMatching(text, passedFallbackPatterns)
	}
	failed := sumFirstMatching(text, failedPatterns)
	total := sumFirstMatching(text, totalPatterns)

	if failed == nil && total != nil && passed != nil {
		derived := *total - *passed
		if derived < 0 {
			derived = 0
		}
		failed = &derived
	}

	return Counts{Passed: passed, Failed: failed}
}

func sumFirstMatching(text string, patterns []*regexp.Regexp) *int {
	for _, re := range patterns {
		matches := re.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		sum := 0
		for _, m := range matches {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			sum += n
		}
		return &sum
	}
	return nil
}
