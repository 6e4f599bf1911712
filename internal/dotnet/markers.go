package dotnet

import (
	"os"
	"strings"
)

// skipMarkers are file names that exclude an issue from test runs, in
// lookup order. Matching is case-insensitive.
var skipMarkers = []string{
	"ignore", "ignore.md",
	"explicit", "explicit.md",
	"wip", "wip.md",
	"gui", "gui.md",
	"closedasnotplanned", "closedasnotplanned.md",
	"closednotplanned", "closednotplanned.md",
}

var markerReasons = map[string]string{
	"ignore":             "Ignored",
	"explicit":           "Explicit",
	"wip":                "WIP",
	"gui":                "GUI",
	"closednotplanned":   "Closed Not Planned",
	"closedasnotplanned": "Closed As Not Planned",
}

// Markers evaluates marker files in issue folders.
type Markers struct{}

func folderFiles(dir string) map[string]bool {
	files := make(map[string]bool)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return files
	}
	for _, e := range entries {
		if !e.IsDir() {
			files[strings.ToLower(e.Name())] = true
		}
	}
	return files
}

func foundMarker(dir string) string {
	files := folderFiles(dir)
	for _, m := range skipMarkers {
		if files[m] {
			return m
		}
	}
	return ""
}

// ShouldSkip reports whether dir contains a skip marker.
func (Markers) ShouldSkip(dir string) bool {
	return foundMarker(dir) != ""
}

// Reason returns the display reason for the first marker found.
func (Markers) Reason(dir string) string {
	m := strings.TrimSuffix(foundMarker(dir), ".md")
	if r, ok := markerReasons[m]; ok {
		return r
	}
	return "marker file"
}

// RequiresWindows reports whether dir carries a windows marker.
func (Markers) RequiresWindows(dir string) bool {
	files := folderFiles(dir)
	return files["windows"] || files["windows.md"]
}

// HasNetFx reports whether any framework is a .NET Framework moniker.
func HasNetFx(frameworks []string) bool {
	for _, f := range frameworks {
		f = strings.ToLower(f)
		if strings.HasPrefix(f, "net4") || strings.HasPrefix(f, "net3") || strings.HasPrefix(f, "net2") {
			return true
		}
	}
	return false
}
