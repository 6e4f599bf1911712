// Package events provides the per-invocation event log for issuerunner.
// Events are stored in an append-only JSONL file under the data directory.
package events

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the events.jsonl line format version.
const SchemaVersion = "1.0"

// Event names.
const (
	RunStarted    = "run_started"
	JobStarted    = "job_started"
	StepFinished  = "step_finished"
	JobFinished   = "job_finished"
	JobSkipped    = "job_skipped"
	FeedChanged   = "feed_changed"
	RunFinished   = "run_finished"
	BaselineSaved = "baseline_saved"
)

// Event represents a single line in events.jsonl.
type Event struct {
	SchemaVersion string         `json:"schema_version"`
	Timestamp     string         `json:"timestamp"` // RFC3339
	RunID         string         `json:"run_id"`
	Event         string         `json:"event"`
	Data          map[string]any `json:"data,omitempty"`
}

// AppendEvent appends a single event to the events file, creating it and
// its parent directory lazily. Each event is one compact JSON line.
//
// Best-effort: callers collect the error and continue.
func AppendEvent(path string, e Event) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// Recorder stamps events with one run id and appends them to a fixed path.
// A nil *Recorder discards everything.
type Recorder struct {
	Path  string
	RunID string
	Now   func() time.Time
}

// NewRecorder returns a recorder with a fresh random run id.
func NewRecorder(path string) *Recorder {
	return &Recorder{Path: path, RunID: uuid.NewString(), Now: time.Now}
}

// Emit appends an event. Errors are returned for the caller to collect.
func (r *Recorder) Emit(name string, data map[string]any) error {
	if r == nil || r.Path == "" {
		return nil
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return AppendEvent(r.Path, Event{
		SchemaVersion: SchemaVersion,
		Timestamp:     now().UTC().Format(time.RFC3339),
		RunID:         r.RunID,
		Event:         name,
		Data:          data,
	})
}

// RunStartedData returns the data map for a run_started event.
func RunStartedData(feed, scope, kind string, rerunFailed bool, issues []int) map[string]any {
	data := map[string]any{
		"feed":         feed,
		"scope":        scope,
		"test_types":   kind,
		"rerun_failed": rerunFailed,
	}
	if len(issues) > 0 {
		data["issues"] = issues
	}
	return data
}

// JobStartedData returns the data map for a job_started event.
func JobStartedData(issue int, projects int) map[string]any {
	return map[string]any{
		"issue":    issue,
		"projects": projects,
	}
}

// StepFinishedData returns the data map for a step_finished event.
func StepFinishedData(issue int, project, stage, status string, timedOut bool) map[string]any {
	data := map[string]any{
		"issue":   issue,
		"project": project,
		"stage":   stage,
		"status":  status,
	}
	if timedOut {
		data["timed_out"] = true
	}
	return data
}

// JobFinishedData returns the data map for a job_finished event.
func JobFinishedData(issue int, state string, results int) map[string]any {
	return map[string]any{
		"issue":   issue,
		"state":   state,
		"results": results,
	}
}

// JobSkippedData returns the data map for a job_skipped event.
func JobSkippedData(issue int, reason string) map[string]any {
	return map[string]any{
		"issue":  issue,
		"reason": reason,
	}
}

// FeedChangedData returns the data map for a feed_changed event.
func FeedChangedData(previous, current string) map[string]any {
	return map[string]any{
		"previous_feed": previous,
		"feed":          current,
	}
}

// RunFinishedData returns the data map for a run_finished event.
// errorCode is empty on success.
func RunFinishedData(admitted, results, failed int, cancelled bool, durationMS int64, errorCode string) map[string]any {
	data := map[string]any{
		"admitted":    admitted,
		"results":     results,
		"failed":      failed,
		"cancelled":   cancelled,
		"duration_ms": durationMS,
	}
	if errorCode != "" {
		data["error_code"] = errorCode
	}
	return data
}

// BaselineSavedData returns the data map for a baseline_saved event.
func BaselineSavedData(path string) map[string]any {
	return map[string]any{"path": path}
}
