package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/NielsdaWheelz/issuerunner/internal/store"
)

// RunSummary is what `issuerunner run` prints after processing.
type RunSummary struct {
	// Results are the entries produced or carried forward by this run.
	Results []store.ProjectResult

	Preserved            int
	MissingRequested     []int
	ExcludedNonCompiling []int

	FeedChanged  bool
	PreviousFeed string
	Feed         string

	// Promoted are projects that were failing and now pass.
	Promoted []store.ListEntry

	Cancelled   bool
	ResultsPath string
}

// WriteRunSummary writes a per-project table followed by totals.
func WriteRunSummary(w io.Writer, s RunSummary) error {
	if s.FeedChanged {
		if _, err := fmt.Fprintf(w, "feed changed: %s -> %s (package versions reset)\n", s.PreviousFeed, s.Feed); err != nil {
			return err
		}
	}
	if len(s.MissingRequested) > 0 {
		if _, err := fmt.Fprintf(w, "not found locally: %s\n", joinIssueNumbers(s.MissingRequested)); err != nil {
			return err
		}
	}
	if len(s.ExcludedNonCompiling) > 0 {
		if _, err := fmt.Fprintf(w, "excluded (did not compile last run): %s\n", joinIssueNumbers(s.ExcludedNonCompiling)); err != nil {
			return err
		}
	}

	if len(s.Results) == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}

	counts := map[string]int{}
	rows := make([][]string, 0, len(s.Results))
	for _, r := range s.Results {
		counts[r.TestResult]++
		rows = append(rows, []string{
			"#" + strconv.Itoa(r.Number),
			TruncateForDisplay(r.ProjectPath, 50),
			r.TestResult,
			TruncateForDisplay(r.TestConclusion, 80),
		})
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if err := writeTable(w, []string{"ISSUE", "PROJECT", "RESULT", "CONCLUSION"}, rows); err != nil {
		return err
	}

	other := len(s.Results) - counts[store.TestSuccess] - counts[store.TestFail] - counts[store.TestSkipped]
	line := fmt.Sprintf("\n%d passed, %d failed, %d skipped, %d other",
		counts[store.TestSuccess], counts[store.TestFail], counts[store.TestSkipped], other)
	if s.Preserved > 0 {
		line += fmt.Sprintf(" (%d carried forward)", s.Preserved)
	}
	if s.Cancelled {
		line += "; cancelled"
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, p := range s.Promoted {
		if _, err := fmt.Fprintf(w, "now passing: %s %s\n", p.Issue, p.Project); err != nil {
			return err
		}
	}
	if s.ResultsPath != "" {
		_, err := fmt.Fprintf(w, "results: %s\n", s.ResultsPath)
		return err
	}
	return nil
}

func joinIssueNumbers(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = "#" + strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}
