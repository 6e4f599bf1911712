package store

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/NielsdaWheelz/issuerunner/internal/errors"
	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

//go:embed metadata_schema.json
var metadataSchema string

// Lifecycle states as reported by the issue tracker.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// JobMetadata is the issue-tracker view of one issue.
type JobMetadata struct {
	Number    int      `json:"number"`
	Title     string   `json:"title"`
	State     string   `json:"state"`
	Milestone string   `json:"milestone,omitempty"`
	Labels    []string `json:"labels"`
	URL       string   `json:"url"`
}

// IsClosed reports whether the issue is closed, ignoring case.
func (m JobMetadata) IsClosed() bool {
	return strings.EqualFold(m.State, StateClosed)
}

// IsOpen reports whether the issue is open, ignoring case.
func (m JobMetadata) IsOpen() bool {
	return strings.EqualFold(m.State, StateOpen)
}

// LoadMetadata reads and validates the central metadata file.
// Returns E_NO_METADATA if the file is missing and E_INVALID_METADATA if it
// fails schema validation or decoding. Duplicate numbers resolve to the last
// entry in file order; each duplicate is logged as a warning.
func (s *Store) LoadMetadata(logger *slog.Logger) (map[int]JobMetadata, error) {
	path := s.MetadataPath()
	data, err := s.FS.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewWithDetails(errors.ENoMetadata, "issues_metadata.json not found",
				map[string]string{"path": path, "hint": "sync issue metadata before running tests"})
		}
		return nil, errors.WrapWithDetails(errors.ENoMetadata, "failed to read issues_metadata.json", err,
			map[string]string{"path": path})
	}

	if err := validateMetadata(data); err != nil {
		return nil, errors.WrapWithDetails(errors.EInvalidMetadata, "issues_metadata.json failed validation", err,
			map[string]string{"path": path})
	}

	var entries []JobMetadata
	if err := fs.UnmarshalJSONStrict(data, &entries); err != nil {
		return nil, errors.WrapWithDetails(errors.EInvalidMetadata, "issues_metadata.json is not valid JSON", err,
			map[string]string{"path": path})
	}

	byNumber, dups := DedupeMetadata(entries)
	if logger != nil {
		for _, n := range dups {
			logger.Warn("duplicate issue in metadata; keeping last entry", "issue", n)
		}
	}
	return byNumber, nil
}

// DedupeMetadata folds entries into a map keyed by number, overwriting on
// every occurrence so the last entry wins. The second return lists each
// duplicated number once, in first-duplicate order.
func DedupeMetadata(entries []JobMetadata) (map[int]JobMetadata, []int) {
	out := make(map[int]JobMetadata, len(entries))
	seen := make(map[int]bool)
	var dups []int
	for _, m := range entries {
		if _, ok := out[m.Number]; ok && !seen[m.Number] {
			seen[m.Number] = true
			dups = append(dups, m.Number)
		}
		out[m.Number] = m
	}
	return out, dups
}

func validateMetadata(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(metadataSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
