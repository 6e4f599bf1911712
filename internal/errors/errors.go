// Package errors defines the stable error code system for issuerunner.
package errors

import (
	"errors"
	"fmt"
	"io"
)

// Code is a stable error code string.
type Code string

// Error codes. Printed on stderr as the first line of every failure.
const (
	EUsage    Code = "E_USAGE"
	EInternal Code = "E_INTERNAL"

	// Repository and configuration
	ENoRoot          Code = "E_NO_ROOT"          // no repository.json / .git found walking up
	EInvalidConfig   Code = "E_INVALID_CONFIG"   // repository.json unreadable or fails validation
	EInvalidOptions  Code = "E_INVALID_OPTIONS"  // run options fail validation
	ENoMetadata      Code = "E_NO_METADATA"      // issues_metadata.json missing
	EInvalidMetadata Code = "E_INVALID_METADATA" // issues_metadata.json fails schema or decode
	EDiscoveryFailed Code = "E_DISCOVERY_FAILED" // issue folder scan failed

	// Result snapshots
	ENoResults     Code = "E_NO_RESULTS"     // results.json missing where required
	ENoBaseline    Code = "E_NO_BASELINE"    // results-baseline.json missing
	EStoreCorrupt  Code = "E_STORE_CORRUPT"  // snapshot exists but cannot be decoded
	EPersistFailed Code = "E_PERSIST_FAILED" // primary snapshot write failed
	EPromoteFailed Code = "E_PROMOTE_FAILED" // baseline promotion failed
	EResetFailed   Code = "E_RESET_FAILED"   // one or more issue folders could not be reset

	// Run outcomes
	ENothingToRun Code = "E_NOTHING_TO_RUN" // admission produced no jobs
	ETestsFailed  Code = "E_TESTS_FAILED"   // at least one admitted job failed its test stage
	ECancelled    Code = "E_CANCELLED"      // user interrupt stopped the run
	ERegressions  Code = "E_REGRESSIONS"    // check found closed issues failing
)

// RunnerError is the standard error type for issuerunner errors.
type RunnerError struct {
	Code    Code
	Msg     string
	Cause   error
	Details map[string]string // optional structured context
}

// Error returns the stable error format: "CODE: message".
func (e *RunnerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *RunnerError) Unwrap() error {
	return e.Cause
}

// New creates a new RunnerError with the given code and message.
func New(code Code, msg string) error {
	return &RunnerError{Code: code, Msg: msg}
}

// NewWithDetails creates a new RunnerError with code, message, and details.
// Details map is copied (nil if empty).
func NewWithDetails(code Code, msg string, details map[string]string) error {
	return &RunnerError{Code: code, Msg: msg, Details: copyDetails(details)}
}

// Wrap creates a new RunnerError wrapping an underlying error.
func Wrap(code Code, msg string, err error) error {
	return &RunnerError{Code: code, Msg: msg, Cause: err}
}

// WrapWithDetails creates a new RunnerError wrapping an underlying error with details.
func WrapWithDetails(code Code, msg string, err error, details map[string]string) error {
	return &RunnerError{Code: code, Msg: msg, Cause: err, Details: copyDetails(details)}
}

// GetCode extracts the error code from an error, or empty string if not a RunnerError.
func GetCode(err error) Code {
	var re *RunnerError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// AsRunnerError returns (*RunnerError, true) if err is or wraps a RunnerError.
func AsRunnerError(err error) (*RunnerError, bool) {
	var re *RunnerError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

func copyDetails(details map[string]string) map[string]string {
	if len(details) == 0 {
		return nil
	}
	cp := make(map[string]string, len(details))
	for k, v := range details {
		cp[k] = v
	}
	return cp
}

// ExitCode returns the process exit code for an error.
// Returns 0 if err is nil, 2 for E_USAGE, 130 for E_CANCELLED, 1 for all other errors.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCode(err) {
	case EUsage:
		return 2
	case ECancelled:
		return 130
	}
	return 1
}

// Print writes the error to w in the stable stderr format:
//
//	error_code: <CODE>
//	<message>
func Print(w io.Writer, err error) {
	if err == nil {
		return
	}
	var re *RunnerError
	if errors.As(err, &re) {
		_, _ = fmt.Fprintf(w, "error_code: %s\n", re.Code)
		_, _ = fmt.Fprintln(w, re.Msg)
	} else {
		_, _ = fmt.Fprintln(w, err.Error())
	}
}
