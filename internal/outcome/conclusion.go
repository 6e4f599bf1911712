package outcome

// Stage identifies which pipeline stage failed first, if any.
type Stage string

const (
	StageNone    Stage = ""
	StageRestore Stage = "restore"
	StageBuild   Stage = "build"
	StageTest    Stage = "test"
)

// Input is everything the conclusion depends on.
type Input struct {
	// Success is true when every stage that ran succeeded.
	Success bool

	// UpdateOK is false when the package update step failed.
	UpdateOK bool

	// FailedStage is the first stage that failed.
	FailedStage Stage

	// TimedOut marks a failed stage that was terminated by its timeout.
	TimedOut bool

	// Text is the combined stdout and stderr of everything that ran.
	Text string
}

// Conclusion builds the one-sentence outcome:
//
//	Success: No regression failure (<counts>)
//	Failure: <reason> (<counts>)
//
// The parenthetical is omitted when no counts are found. A restore or build
// failure overrides the content heuristics. A timeout qualifies the reason.
func Conclusion(in Input) string {
	counts := ExtractCounts(in.Text).String()

	if in.Success {
		return withCounts("Success: No regression failure", counts)
	}

	var reason string
	switch in.FailedStage {
	case StageRestore:
		reason = ReasonRestore
	case StageBuild:
		reason = ReasonBuild
	default:
		reason = FailureReason(in.UpdateOK, in.Text)
	}
	if in.TimedOut {
		reason += " (timed out)"
	}

	return withCounts("Failure: "+reason, counts)
}

func withCounts(head, counts string) string {
	if counts == "" {
		return head
	}
	return head + " (" + counts + ")"
}
