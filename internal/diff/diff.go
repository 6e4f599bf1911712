// Package diff compares two persisted result snapshots and classifies every
// changed (issue, project) pair.
package diff

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/store"
)

// Category classifies a change between baseline and current.
type Category string

const (
	Regression    Category = "regression"
	Fixed         Category = "fixed"
	CompileToFail Category = "compile_to_fail"
	Other         Category = "other"
)

// Normalized statuses.
const (
	StatusSuccess    = "success"
	StatusFail       = "fail"
	StatusNotRun     = "not run"
	StatusSkipped    = "skipped"
	StatusNotCompile = "not compile"
)

// ChangeRecord is one changed pair. Not persisted.
type ChangeRecord struct {
	Number         int      `json:"number" yaml:"number"`
	ProjectPath    string   `json:"project_path" yaml:"project_path"`
	BaselineStatus string   `json:"baseline_status" yaml:"baseline_status"`
	CurrentStatus  string   `json:"current_status" yaml:"current_status"`
	Category       Category `json:"change_type" yaml:"change_type"`
}

// Normalize folds the textual variants of a test result into a small set.
// Unknown labels are lower-cased and passed through.
func Normalize(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case "success", "pass", "passed":
		return StatusSuccess
	case "fail", "failed", "failure":
		return StatusFail
	case "not run", "notrun", "":
		return StatusNotRun
	case "skipped":
		return StatusSkipped
	}
	if strings.Contains(s, "compil") {
		return StatusNotCompile
	}
	return s
}

// Classify returns the category for a normalized pair, or false when the
// pair is not a reportable change.
func Classify(baseline, current string) (Category, bool) {
	if baseline == StatusSkipped || current == StatusSkipped {
		return "", false
	}
	if baseline == current {
		return "", false
	}
	switch {
	case baseline == StatusSuccess && current == StatusFail:
		return Regression, true
	case baseline == StatusFail && current == StatusSuccess:
		return Fixed, true
	case (baseline == StatusNotRun || baseline == StatusNotCompile) && current == StatusFail:
		return CompileToFail, true
	}
	return Other, true
}

type side struct {
	number int
	path   string
	status string
}

// Compare classifies every key present in either snapshot. A key missing on
// one side is compared against "not run". Records are sorted by issue number
// then case-insensitive project path.
func Compare(baseline, current []store.ProjectResult) []ChangeRecord {
	base := index(baseline)
	cur := index(current)

	keys := make(map[string]bool, len(base)+len(cur))
	for k := range base {
		keys[k] = true
	}
	for k := range cur {
		keys[k] = true
	}

	var records []ChangeRecord
	for k := range keys {
		b, inBase := base[k]
		c, inCur := cur[k]

		ref := c
		if !inCur {
			ref = b
		}
		bs, cs := StatusNotRun, StatusNotRun
		if inBase {
			bs = Normalize(b.status)
		}
		if inCur {
			cs = Normalize(c.status)
		}

		cat, ok := Classify(bs, cs)
		if !ok {
			continue
		}
		records = append(records, ChangeRecord{
			Number:         ref.number,
			ProjectPath:    ref.path,
			BaselineStatus: bs,
			CurrentStatus:  cs,
			Category:       cat,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Number != records[j].Number {
			return records[i].Number < records[j].Number
		}
		return strings.ToLower(records[i].ProjectPath) < strings.ToLower(records[j].ProjectPath)
	})
	return records
}

func index(results []store.ProjectResult) map[string]side {
	out := make(map[string]side, len(results))
	for _, r := range results {
		out[r.Key()] = side{number: r.Number, path: r.ProjectPath, status: r.TestResult}
	}
	return out
}

// Counts tallies records per category.
func Counts(records []ChangeRecord) map[Category]int {
	out := map[Category]int{Regression: 0, Fixed: 0, CompileToFail: 0, Other: 0}
	for _, r := range records {
		out[r.Category]++
	}
	return out
}

// Snapshots holds both sides of a comparison.
type Snapshots struct {
	Baseline []store.ProjectResult
	Current  []store.ProjectResult
}

// Load reads the baseline and live snapshots concurrently. Both must exist.
func Load(ctx context.Context, s *store.Store) (Snapshots, error) {
	var snaps Snapshots
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		results, ok, err := s.LoadBaseline()
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewWithDetails(errors.ENoBaseline, "results-baseline.json not found",
				map[string]string{"path": s.BaselinePath()})
		}
		snaps.Baseline = results
		return nil
	})
	g.Go(func() error {
		results, ok, err := s.LoadResults()
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewWithDetails(errors.ENoResults, "results.json not found",
				map[string]string{"path": s.ResultsPath()})
		}
		snaps.Current = results
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshots{}, err
	}
	return snaps, nil
}
