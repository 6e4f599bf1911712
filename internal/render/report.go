package render

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/NielsdaWheelz/issuerunner/internal/diff"
	"github.com/NielsdaWheelz/issuerunner/internal/store"
)

// MarkdownReport is the input to WriteMarkdownReport.
type MarkdownReport struct {
	Results  []store.ProjectResult
	Metadata map[int]store.JobMetadata

	// Snapshot, when set, lists the package versions the run targeted.
	// Otherwise versions are collected from the results.
	Snapshot *store.PackageSnapshot

	// IssueURL links an issue number; nil renders plain "#N".
	IssueURL func(int) string
}

type reportTally struct {
	success, fail []store.ProjectResult
}

func (t reportTally) total() int { return len(t.success) + len(t.fail) }

// WriteMarkdownReport writes TestReport.md: a summary, the package versions
// under test, closed issues (regressions) and open issues (repros).
// Skipped results and issues missing from metadata are left out.
func WriteMarkdownReport(w io.Writer, r MarkdownReport) error {
	var closed, open reportTally
	for _, res := range r.Results {
		m, ok := r.Metadata[res.Number]
		if !ok {
			continue
		}
		status := diff.Normalize(res.TestResult)
		if status == diff.StatusSkipped {
			continue
		}
		var t *reportTally
		switch {
		case m.IsClosed():
			t = &closed
		case m.IsOpen():
			t = &open
		default:
			continue
		}
		if status == diff.StatusSuccess {
			t.success = append(t.success, res)
		} else {
			t.fail = append(t.fail, res)
		}
	}

	var b strings.Builder
	b.WriteString("# Test Report\n\n")

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Regression tests: total %d, success %d, fail %d\n", closed.total(), len(closed.success), len(closed.fail))
	fmt.Fprintf(&b, "- Open issues: total %d, success %d, fail %d\n\n", open.total(), len(open.success), len(open.fail))

	b.WriteString("## What we are testing\n\n")
	if r.Snapshot != nil && r.Snapshot.Feed != "" {
		fmt.Fprintf(&b, "Feed: %s\n\n", r.Snapshot.Feed)
	}
	b.WriteString("Package versions under test:\n\n")
	lines := packageLines(r)
	if len(lines) == 0 {
		b.WriteString("*No package references recorded*\n")
	}
	for _, l := range lines {
		fmt.Fprintf(&b, "- %s\n", l)
	}
	b.WriteString("\n")

	b.WriteString("## Regression tests (closed issues)\n\n")
	if closed.total() == 0 {
		b.WriteString("*No closed issues tested*\n\n")
	} else {
		fmt.Fprintf(&b, "- Total: %d, Success: %d, Fail: %d\n\n", closed.total(), len(closed.success), len(closed.fail))
		b.WriteString("| Issue | Test | Conclusion |\n|---|---|---|\n")
		for _, res := range append(append([]store.ProjectResult{}, closed.fail...), closed.success...) {
			conclusion := "Success: No regression failure"
			mark := "✅"
			if diff.Normalize(res.TestResult) != diff.StatusSuccess {
				conclusion = "Failure: Regression failure."
				mark = "❗"
			}
			fmt.Fprintf(&b, "| %s %s | %s | %s |\n", mark, r.link(res.Number), cell(res.TestResult), conclusion)
		}
		b.WriteString("\n")

		if len(closed.fail) > 0 {
			b.WriteString("### Closed failures (details)\n\n")
			b.WriteString("| Issue | Conclusion | Details |\n|---|---|---|\n")
			for _, res := range closed.fail {
				details := strings.TrimSpace(res.TestError + " " + res.TestOutput)
				fmt.Fprintf(&b, "| %s | %s | %s |\n", r.link(res.Number), cell(res.TestConclusion), cell(details))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Open issues\n\n")
	if open.total() == 0 {
		b.WriteString("*No open issues tested*\n")
	} else {
		fmt.Fprintf(&b, "- Total: %d, Success: %d, Fail: %d\n\n", open.total(), len(open.success), len(open.fail))
		r.writeOpenTable(&b, "### Succeeded (candidates to close)", open.success)
		r.writeOpenTable(&b, "### Failing (confirmed repros)", open.fail)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r MarkdownReport) writeOpenTable(b *strings.Builder, heading string, results []store.ProjectResult) {
	b.WriteString(heading + "\n\n")
	if len(results) == 0 {
		b.WriteString("*None*\n\n")
		return
	}
	b.WriteString("| Issue | Test | Conclusion |\n|---|---|---|\n")
	for _, res := range results {
		fmt.Fprintf(b, "| %s | %s | %s |\n", r.link(res.Number), cell(res.TestResult), cell(res.TestConclusion))
	}
	b.WriteString("\n")
}

func (r MarkdownReport) link(n int) string {
	label := "#" + strconv.Itoa(n)
	if r.IssueURL == nil {
		return label
	}
	if url := r.IssueURL(n); url != "" {
		return "[" + label + "](" + url + ")"
	}
	return label
}

// packageLines renders "Name=Version", or "Name: v1, v2" when the results
// disagree on a version.
func packageLines(r MarkdownReport) []string {
	versions := map[string]map[string]bool{}
	add := func(name, version string) {
		if versions[name] == nil {
			versions[name] = map[string]bool{}
		}
		versions[name][version] = true
	}
	if r.Snapshot != nil && len(r.Snapshot.Packages) > 0 {
		for name, v := range r.Snapshot.Packages {
			add(name, v)
		}
	} else {
		for _, res := range r.Results {
			for _, p := range res.Packages {
				name, v, ok := strings.Cut(p, "=")
				if !ok || name == "" {
					continue
				}
				add(name, v)
			}
		}
	}

	names := make([]string, 0, len(versions))
	for n := range versions {
		names = append(names, n)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, n := range names {
		vs := make([]string, 0, len(versions[n]))
		for v := range versions[n] {
			vs = append(vs, v)
		}
		sort.Strings(vs)
		if len(vs) == 1 {
			lines = append(lines, n+"="+vs[0])
		} else {
			lines = append(lines, n+": "+strings.Join(vs, ", "))
		}
	}
	return lines
}

// cell makes s safe inside a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "<br/>")
}
