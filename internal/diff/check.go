package diff

import "github.com/NielsdaWheelz/issuerunner/internal/store"

// RegressionFailure is a closed issue whose current test result is a failure.
type RegressionFailure struct {
	Number      int    `json:"number" yaml:"number"`
	ProjectPath string `json:"project_path" yaml:"project_path"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Conclusion  string `json:"test_conclusion,omitempty" yaml:"test_conclusion,omitempty"`
}

// ClosedFailures returns results for closed issues whose test result
// normalizes to fail, in snapshot order. Issues missing from metadata are
// ignored.
func ClosedFailures(current []store.ProjectResult, metadata map[int]store.JobMetadata) []RegressionFailure {
	var out []RegressionFailure
	for _, r := range current {
		m, ok := metadata[r.Number]
		if !ok || !m.IsClosed() {
			continue
		}
		if Normalize(r.TestResult) != StatusFail {
			continue
		}
		out = append(out, RegressionFailure{
			Number:      r.Number,
			ProjectPath: r.ProjectPath,
			Title:       m.Title,
			Conclusion:  r.TestConclusion,
		})
	}
	return out
}
