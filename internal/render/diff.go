package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/NielsdaWheelz/issuerunner/internal/diff"
	"github.com/NielsdaWheelz/issuerunner/internal/store"
)

// DiffReport is the structured form of `issuerunner diff`.
type DiffReport struct {
	Packages *store.PackageSnapshot `json:"packages,omitempty" yaml:"packages,omitempty"`
	Summary  map[diff.Category]int  `json:"summary" yaml:"summary"`
	Changes  []diff.ChangeRecord    `json:"changes" yaml:"changes"`
}

// NewDiffReport builds a report from classified changes.
func NewDiffReport(changes []diff.ChangeRecord, packages *store.PackageSnapshot) DiffReport {
	if changes == nil {
		changes = []diff.ChangeRecord{}
	}
	return DiffReport{Packages: packages, Summary: diff.Counts(changes), Changes: changes}
}

var diffSections = []struct {
	cat   diff.Category
	title string
}{
	{diff.Regression, "Regressions"},
	{diff.Fixed, "Fixed"},
	{diff.CompileToFail, "Compiling now, failing"},
	{diff.Other, "Other changes"},
}

// WriteDiffHuman writes the diff grouped by category.
func WriteDiffHuman(w io.Writer, r DiffReport) error {
	if r.Packages != nil {
		if _, err := fmt.Fprintf(w, "packages: feed %s at %s\n", r.Packages.Feed, r.Packages.Timestamp); err != nil {
			return err
		}
	}
	if len(r.Changes) == 0 {
		_, err := fmt.Fprintln(w, "no changes against baseline")
		return err
	}

	for _, sec := range diffSections {
		var rows [][]string
		for _, c := range r.Changes {
			if c.Category != sec.cat {
				continue
			}
			rows = append(rows, []string{
				"#" + strconv.Itoa(c.Number),
				TruncateForDisplay(c.ProjectPath, 60),
				c.BaselineStatus + " -> " + c.CurrentStatus,
			})
		}
		if len(rows) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n%s (%d):\n", sec.title, len(rows)); err != nil {
			return err
		}
		if err := writeTable(w, []string{"ISSUE", "PROJECT", "CHANGE"}, rows); err != nil {
			return err
		}
	}

	s := r.Summary
	_, err := fmt.Fprintf(w, "\n%d regression(s), %d fixed, %d compile-to-fail, %d other\n",
		s[diff.Regression], s[diff.Fixed], s[diff.CompileToFail], s[diff.Other])
	return err
}

// WriteCheckHuman writes closed issues that currently fail.
func WriteCheckHuman(w io.Writer, failures []diff.RegressionFailure) error {
	if len(failures) == 0 {
		_, err := fmt.Fprintln(w, "no regression failures in closed issues")
		return err
	}
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{
			"#" + strconv.Itoa(f.Number),
			TruncateForDisplay(f.ProjectPath, 60),
			TruncateForDisplay(f.Title, 50),
		})
	}
	if err := writeTable(w, []string{"ISSUE", "PROJECT", "TITLE"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d regression failure(s) in closed issues\n", len(failures))
	return err
}
