package dotnet

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/NielsdaWheelz/issuerunner/internal/fs"
)

// LatestFramework is the framework modern targets are moved to.
const LatestFramework = "net10.0"

// MinNetFx is the .NET Framework version legacy targets are moved to.
const MinNetFx = "net462"

var legacyNetFx = map[string]bool{
	"net35": true, "net40": true, "net45": true, "net451": true,
	"net452": true, "net46": true, "net461": true,
}

var (
	netVersionRe  = regexp.MustCompile(`^net(\d+)(?:\.\d+)?$`)
	tfmElementRe  = regexp.MustCompile(`(<TargetFramework>)([^<]*)(</TargetFramework>)`)
	tfmsElementRe = regexp.MustCompile(`(<TargetFrameworks>)([^<]*)(</TargetFrameworks>)`)
	anyTFMElemRe  = regexp.MustCompile(`<(TargetFrameworks?)>([^<]*)</TargetFrameworks?>`)
	packageRefRe  = regexp.MustCompile(`<PackageReference\b[^>]*>`)
	includeAttrRe = regexp.MustCompile(`\bInclude\s*=\s*"([^"]*)"`)
	versionAttrRe = regexp.MustCompile(`(\bVersion\s*=\s*")([^"]*)(")`)
)

// MapFramework maps a target framework moniker to the one the runner builds
// against. .NET Framework below 4.6.2 becomes net462, netcoreapp and net5-9
// become net10.0, netstandard and everything else is kept.
func MapFramework(framework string) string {
	tfm := strings.ToLower(strings.TrimSpace(framework))
	if legacyNetFx[tfm] {
		return MinNetFx
	}
	if strings.HasPrefix(tfm, "netcoreapp") {
		return LatestFramework
	}
	if strings.HasPrefix(tfm, "netstandard") {
		return framework
	}
	if m := netVersionRe.FindStringSubmatch(tfm); m != nil {
		major, err := strconv.Atoi(m[1])
		if err == nil && major >= 5 && major < 10 {
			return LatestFramework
		}
	}
	return framework
}

// UpgradeFrameworksText rewrites TargetFramework and TargetFrameworks
// elements in project XML. Plural lists are split on ';' or ',' and
// deduplicated. Reports whether anything changed.
func UpgradeFrameworksText(xmlText string) (string, bool) {
	changed := false
	out := tfmElementRe.ReplaceAllStringFunc(xmlText, func(s string) string {
		m := tfmElementRe.FindStringSubmatch(s)
		orig := strings.TrimSpace(m[2])
		if orig == "" {
			return s
		}
		up := MapFramework(orig)
		if up == orig {
			return s
		}
		changed = true
		return m[1] + up + m[3]
	})
	out = tfmsElementRe.ReplaceAllStringFunc(out, func(s string) string {
		m := tfmsElementRe.FindStringSubmatch(s)
		parts := strings.FieldsFunc(m[2], func(r rune) bool { return r == ';' || r == ',' })
		seen := make(map[string]bool)
		var upgraded []string
		modified := false
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			up := MapFramework(p)
			if up != p {
				modified = true
			}
			if !seen[strings.ToLower(up)] {
				seen[strings.ToLower(up)] = true
				upgraded = append(upgraded, up)
			}
		}
		if !modified {
			return s
		}
		changed = true
		return m[1] + strings.Join(upgraded, ";") + m[3]
	})
	return out, changed
}

// Upgrader rewrites project frameworks in place.
type Upgrader struct {
	Logger *slog.Logger
}

// Upgrade rewrites every project under jobDir (bin and obj excluded).
// Reports whether any file changed. Per-file failures are logged and skipped.
func (u *Upgrader) Upgrade(jobDir string, id int) bool {
	logger := u.Logger
	if logger == nil {
		logger = slog.Default()
	}

	modified := false
	for _, path := range FindProjectFiles(jobDir) {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Debug("failed to read project for upgrade", "issue", id, "path", path, "error", err)
			continue
		}
		out, changed := UpgradeFrameworksText(string(data))
		if !changed {
			continue
		}
		if err := writeKeepingMode(path, []byte(out)); err != nil {
			logger.Debug("failed to write upgraded project", "issue", id, "path", path, "error", err)
			continue
		}
		modified = true
		rel, _ := filepath.Rel(jobDir, path)
		logger.Info("updated target framework(s)", "issue", id, "project", filepath.ToSlash(rel))
	}
	return modified
}

// SetPackageVersionsText sets the Version attribute of every PackageReference
// whose Include matches a key of versions (case-insensitive). Reports the
// package names changed.
func SetPackageVersionsText(xmlText string, versions map[string]string) (string, []string) {
	lower := make(map[string]string, len(versions))
	for k, v := range versions {
		lower[strings.ToLower(k)] = v
	}

	var changed []string
	out := packageRefRe.ReplaceAllStringFunc(xmlText, func(tag string) string {
		inc := includeAttrRe.FindStringSubmatch(tag)
		if inc == nil {
			return tag
		}
		want, ok := lower[strings.ToLower(inc[1])]
		if !ok {
			return tag
		}
		ver := versionAttrRe.FindStringSubmatch(tag)
		if ver == nil || ver[2] == want {
			return tag
		}
		changed = append(changed, inc[1])
		return versionAttrRe.ReplaceAllString(tag, "${1}"+want+"${3}")
	})
	return out, changed
}

// SetFrameworksText sets the project's framework element to frameworks,
// switching between TargetFramework and TargetFrameworks as the count
// requires. Only the first framework element is touched.
func SetFrameworksText(xmlText string, frameworks []string) (string, bool) {
	if len(frameworks) == 0 {
		return xmlText, false
	}
	loc := anyTFMElemRe.FindStringSubmatchIndex(xmlText)
	if loc == nil {
		return xmlText, false
	}
	name := xmlText[loc[2]:loc[3]]
	value := xmlText[loc[4]:loc[5]]

	wantName, wantValue := "TargetFramework", frameworks[0]
	if len(frameworks) > 1 {
		wantName, wantValue = "TargetFrameworks", strings.Join(frameworks, ";")
	}
	if name == wantName && value == wantValue {
		return xmlText, false
	}
	repl := "<" + wantName + ">" + wantValue + "</" + wantName + ">"
	return xmlText[:loc[0]] + repl + xmlText[loc[1]:], true
}

func writeKeepingMode(path string, data []byte) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	return fs.WriteFileAtomic(fs.NewRealFS(), path, data, perm)
}
