package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotUnderPrefix is returned when a target path is not under the allowed prefix.
type ErrNotUnderPrefix struct {
	Target string
	Prefix string
}

func (e *ErrNotUnderPrefix) Error() string {
	return fmt.Sprintf("target %q is not under allowed prefix %q", e.Target, e.Prefix)
}

// SafeRemove removes a file or directory only if it is under the allowed prefix.
//
// Safety checks:
//   - Both target and prefix are cleaned and resolved via filepath.EvalSymlinks
//   - Target must be a true subpath of prefix (not equal, not outside)
//
// A target that does not exist is not an error.
func SafeRemove(target, allowedPrefix string) error {
	cleanTarget := filepath.Clean(target)

	resolvedTarget, err := filepath.EvalSymlinks(cleanTarget)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &ErrNotUnderPrefix{Target: target, Prefix: allowedPrefix}
	}

	resolvedPrefix, err := filepath.EvalSymlinks(filepath.Clean(allowedPrefix))
	if err != nil {
		return &ErrNotUnderPrefix{Target: target, Prefix: allowedPrefix}
	}

	if !IsSubpath(resolvedTarget, resolvedPrefix) {
		return &ErrNotUnderPrefix{Target: target, Prefix: allowedPrefix}
	}

	return os.RemoveAll(cleanTarget)
}

// IsSubpath returns true if target is a proper subpath of prefix.
// Both paths should already be cleaned.
func IsSubpath(target, prefix string) bool {
	prefixWithSep := prefix
	if !strings.HasSuffix(prefixWithSep, string(filepath.Separator)) {
		prefixWithSep = prefix + string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefixWithSep) && len(target) > len(prefix)
}

// RelOrBase returns target relative to base when target lies under base,
// otherwise the base name of target.
func RelOrBase(base, target string) string {
	cleanBase := filepath.Clean(base)
	cleanTarget := filepath.Clean(target)
	if IsSubpath(cleanTarget, cleanBase) {
		if rel, err := filepath.Rel(cleanBase, cleanTarget); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(cleanTarget)
}
