// Package admission decides which discovered issues run in an invocation.
package admission

import (
	"sort"

	"github.com/NielsdaWheelz/issuerunner/internal/store"
)

// Scope restricts issues by tracker lifecycle state or by their previous
// result.
type Scope string

const (
	ScopeAll    Scope = "all"
	ScopeOpen   Scope = "open"
	ScopeClosed Scope = "closed"

	// ScopeNew keeps issues with no previous result.
	ScopeNew Scope = "new"
	// ScopeNewAndFailed keeps issues with no previous result or a failing one.
	ScopeNewAndFailed Scope = "new-and-failed"
)

// Kind restricts issues by whether they define custom test scripts.
type Kind string

const (
	KindAll    Kind = "all"
	KindDirect Kind = "direct"
	KindCustom Kind = "custom"
)

// StopReason explains why admission produced nothing to run.
type StopReason string

const (
	StopNone              StopReason = ""
	StopNoPersistedResult StopReason = "no_results"        // rerun-failed without results.json
	StopNoFailures        StopReason = "no_failures"       // rerun-failed and nothing failing
	StopNoneRequested     StopReason = "requested_missing" // no explicit id exists locally
)

// Options are the run options that drive admission.
type Options struct {
	Scope        Scope
	Kind         Kind
	IssueNumbers []int
	RerunFailed  bool
}

// CustomScriptCheck reports whether an issue folder defines custom test scripts.
type CustomScriptCheck func(jobDir string) bool

// Decision is the outcome of admission.
type Decision struct {
	// Admitted lists the issue numbers to process, ascending.
	Admitted []int

	// Considered is the discovered set after narrowing to explicit ids.
	// Jobs in Considered but not in Admitted are candidates for carrying
	// forward earlier compile failures.
	Considered []int

	// MissingRequested lists explicit ids with no local folder.
	MissingRequested []int

	// ExcludedNonCompiling lists ids dropped because their last result failed to restore or build.
	ExcludedNonCompiling []int

	// Stop is set when admission is a hard stop.
	Stop StopReason
}

// Filter applies the admission stages in fixed order:
//  1. rerun-failed: keep issues with any persisted result that is not "success"
//  2. explicit ids (ignored in rerun-failed mode)
//  3. drop issues whose last result failed restore or build (skipped in rerun-failed mode)
//  4. scope: lifecycle state, or new / new-and-failed by previous result
//  5. custom-script split
//
// jobs maps issue number to issue folder. Marker skips are not evaluated here.
func Filter(jobs map[int]string, metadata map[int]store.JobMetadata, previous []store.ProjectResult,
	opts Options, hasCustomScripts CustomScriptCheck) Decision {
	var d Decision

	candidates := make(map[int]bool, len(jobs))
	for id := range jobs {
		candidates[id] = true
	}

	// 2. Explicit ids. Applied first since it only narrows the discovered
	// set; the two modes are mutually exclusive.
	if len(opts.IssueNumbers) > 0 && !opts.RerunFailed {
		narrowed := make(map[int]bool)
		for _, id := range uniqueInts(opts.IssueNumbers) {
			if candidates[id] {
				narrowed[id] = true
			} else {
				d.MissingRequested = append(d.MissingRequested, id)
			}
		}
		if len(narrowed) == 0 {
			d.Stop = StopNoneRequested
			return d
		}
		candidates = narrowed
	}
	d.Considered = sortedKeys(candidates)

	// 1. Rerun-failed
	if opts.RerunFailed {
		if len(previous) == 0 {
			d.Stop = StopNoPersistedResult
			return d
		}
		failing := make(map[int]bool)
		for _, r := range previous {
			if r.TestResult != store.TestSuccess {
				failing[r.Number] = true
			}
		}
		if len(failing) == 0 {
			d.Stop = StopNoFailures
			return d
		}
		for id := range candidates {
			if !failing[id] {
				delete(candidates, id)
			}
		}
	}

	// 3. Known non-compiling
	if !opts.RerunFailed {
		broken := nonCompiling(previous)
		for _, id := range sortedKeys(candidates) {
			if broken[id] {
				delete(candidates, id)
				d.ExcludedNonCompiling = append(d.ExcludedNonCompiling, id)
			}
		}
	}

	// 4. Scope
	switch opts.Scope {
	case ScopeOpen, ScopeClosed:
		for id := range candidates {
			m, ok := metadata[id]
			keep := ok && ((opts.Scope == ScopeOpen && m.IsOpen()) || (opts.Scope == ScopeClosed && m.IsClosed()))
			if !keep {
				delete(candidates, id)
			}
		}
	case ScopeNew, ScopeNewAndFailed:
		status := previousStatus(previous)
		for id := range candidates {
			st, seen := status[id]
			keep := !seen || st == "" || (opts.Scope == ScopeNewAndFailed && st == store.TestFail)
			if !keep {
				delete(candidates, id)
			}
		}
	}

	// 5. Execution kind
	if (opts.Kind == KindCustom || opts.Kind == KindDirect) && hasCustomScripts != nil {
		for id := range candidates {
			custom := hasCustomScripts(jobs[id])
			if custom != (opts.Kind == KindCustom) {
				delete(candidates, id)
			}
		}
	}

	d.Admitted = sortedKeys(candidates)
	return d
}

// previousStatus maps each issue to "fail" when any of its projects failed,
// otherwise to the test result of its first project.
func previousStatus(previous []store.ProjectResult) map[int]string {
	out := make(map[int]string)
	for _, r := range previous {
		cur, seen := out[r.Number]
		switch {
		case !seen:
			out[r.Number] = r.TestResult
		case cur != store.TestFail && r.TestResult == store.TestFail:
			out[r.Number] = store.TestFail
		}
	}
	return out
}

func nonCompiling(previous []store.ProjectResult) map[int]bool {
	out := make(map[int]bool)
	for _, r := range previous {
		if r.CompileFailed() {
			out[r.Number] = true
		}
	}
	return out
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func uniqueInts(in []int) []int {
	seen := make(map[int]bool, len(in))
	var out []int
	for _, n := range in {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
