// Package errors provides error formatting for issuerunner CLI output.
package errors

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// PrintOptions controls error output formatting.
type PrintOptions struct {
	// Verbose enables detailed error output with more context keys and longer tails.
	Verbose bool
}

// Context key whitelist (default mode, in order)
var defaultContextKeys = []string{
	"op",
	"issue",
	"project",
	"stage",
	"path",
	"feed",
	"exit_code",
	"count",
}

// Additional context keys for verbose mode
var verboseContextKeys = []string{
	"op",
	"issue",
	"project",
	"stage",
	"path",
	"root",
	"data_dir",
	"feed",
	"previous_feed",
	"exit_code",
	"count",
	"duration_ms",
	"timed_out",
	"cancelled",
	"run_id",
	"hint",
}

const (
	defaultMaxLines = 20
	verboseMaxLines = 100

	maxValueLen      = 256
	maxExtraValueLen = 128
	maxOutputLineLen = 512
)

// Format formats an error for display without I/O.
func Format(err error, opts PrintOptions) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	re, ok := AsRunnerError(err)
	if !ok {
		sb.WriteString(err.Error())
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString("error_code: ")
	sb.WriteString(string(re.Code))
	sb.WriteString("\n")
	sb.WriteString(re.Msg)
	sb.WriteString("\n")

	contextKeys := defaultContextKeys
	if opts.Verbose {
		contextKeys = verboseContextKeys
	}

	printed := make(map[string]bool)
	var ctxBlock strings.Builder
	for _, key := range contextKeys {
		val, ok := re.Details[key]
		if !ok || val == "" || key == "hint" {
			continue
		}
		printed[key] = true
		ctxBlock.WriteString(key)
		ctxBlock.WriteString(": ")
		ctxBlock.WriteString(sanitizeValue(val, maxValueLen))
		ctxBlock.WriteString("\n")
	}
	if ctxBlock.Len() > 0 {
		sb.WriteString("\n")
		sb.WriteString(ctxBlock.String())
	}

	if opts.Verbose && re.Details != nil {
		var extraKeys []string
		for key, val := range re.Details {
			if printed[key] || key == "hint" || key == "output" || val == "" {
				continue
			}
			extraKeys = append(extraKeys, key)
		}
		if len(extraKeys) > 0 {
			sort.Strings(extraKeys)
			sb.WriteString("\nextra:\n")
			for _, key := range extraKeys {
				sb.WriteString("  ")
				sb.WriteString(key)
				sb.WriteString(": ")
				sb.WriteString(sanitizeValue(re.Details[key], maxExtraValueLen))
				sb.WriteString("\n")
			}
		}
	}

	if out := re.Details["output"]; out != "" {
		maxLines := defaultMaxLines
		if opts.Verbose {
			maxLines = verboseMaxLines
		}
		sb.WriteString(outputBlock(out, maxLines))
	}

	if hint := re.Details["hint"]; hint != "" {
		sb.WriteString("\nhint: ")
		sb.WriteString(hint)
		sb.WriteString("\n")
	}

	for _, try := range deriveTryLines(re) {
		sb.WriteString("try: ")
		sb.WriteString(try)
		sb.WriteString("\n")
	}

	return sb.String()
}

// PrintWithOptions writes a formatted error to w with the given options.
func PrintWithOptions(w io.Writer, err error, opts PrintOptions) {
	if err == nil {
		return
	}
	_, _ = io.WriteString(w, Format(err, opts))
}

// sanitizeValue collapses a value onto a single line and truncates it to maxLen.
func sanitizeValue(val string, maxLen int) string {
	val = strings.TrimRight(val, " \t\r\n")
	val = strings.ReplaceAll(val, "\r\n", "\n")
	val = strings.ReplaceAll(val, "\n", "\\n")
	if len(val) > maxLen {
		return val[:maxLen] + "…"
	}
	return val
}

// outputBlock renders the last maxLines lines of captured tool output.
func outputBlock(out string, maxLines int) string {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	truncated := len(lines) > maxLines
	if truncated {
		lines = lines[len(lines)-maxLines:]
	}

	var b strings.Builder
	if truncated {
		b.WriteString(fmt.Sprintf("\noutput (last %d lines):\n", len(lines)))
	} else {
		b.WriteString(fmt.Sprintf("\noutput (%d lines):\n", len(lines)))
	}
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if len(line) > maxOutputLineLen {
			line = line[:maxOutputLineLen] + "…"
		}
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// deriveTryLines returns actionable suggestions based on error code.
func deriveTryLines(re *RunnerError) []string {
	switch re.Code {
	case ENoResults:
		return []string{"issuerunner run"}
	case ENoBaseline:
		return []string{"issuerunner baseline"}
	case ERegressions, ETestsFailed:
		return []string{"issuerunner diff"}
	case ENothingToRun:
		if re.Details["op"] == "rerun-failed" {
			return []string{"issuerunner run"}
		}
	case ENoRoot:
		return []string{"export ISSUERUNNER_ROOT=<repository root>"}
	}
	return nil
}

// GetHint extracts the hint from an error's details, if present.
func GetHint(err error) string {
	re, ok := AsRunnerError(err)
	if !ok {
		return ""
	}
	return re.Details["hint"]
}
