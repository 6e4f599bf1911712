package dotnet

import (
	"encoding/xml"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Project styles.
const (
	StyleSDK     = "SDK-style"
	StyleClassic = "classic"
	StyleUnknown = "unknown"
)

// projectInfo is what one pass over a project file yields.
type projectInfo struct {
	sdk               bool
	frameworks        []string
	packages          []string
	enableNUnitRunner bool
}

func readProject(path string) (projectInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return projectInfo{}, err
	}
	defer f.Close()

	var info projectInfo
	var tfm, tfms string
	var sawTFM, sawTFMs, sawRunner bool
	depth := 0
	var stack []string

	dec := xml.NewDecoder(f)
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return projectInfo{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			stack = append(stack, t.Name.Local)
			if depth == 1 {
				info.sdk = attr(t, "Sdk") != ""
			}
			if t.Name.Local == "PackageReference" {
				name, version := attr(t, "Include"), attr(t, "Version")
				if name != "" && version != "" {
					info.packages = append(info.packages, name+"="+version)
				}
			}
		case xml.EndElement:
			depth--
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			switch stack[len(stack)-1] {
			case "TargetFramework":
				if !sawTFM {
					tfm, sawTFM = text, true
				}
			case "TargetFrameworks":
				if !sawTFMs {
					tfms, sawTFMs = text, true
				}
			case "EnableNUnitRunner":
				if !sawRunner {
					info.enableNUnitRunner, sawRunner = strings.EqualFold(text, "true"), true
				}
			}
		}
	}
	if depth != 0 {
		return projectInfo{}, io.ErrUnexpectedEOF
	}

	if tfm != "" {
		info.frameworks = append(info.frameworks, tfm)
	}
	for _, f := range strings.Split(tfms, ";") {
		if f = strings.TrimSpace(f); f != "" {
			info.frameworks = append(info.frameworks, f)
		}
	}
	return info, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Analyzer reads project files.
type Analyzer struct {
	Logger *slog.Logger
	// GOOS selects the custom script extension; defaults to runtime.GOOS.
	GOOS string
}

// Parse returns the declared target frameworks and packages ("Name=Version")
// of a project, including a sibling packages.config. Parse errors yield
// empty lists.
func (a *Analyzer) Parse(path string) ([]string, []string) {
	info, err := readProject(path)
	if err != nil {
		a.logger().Error("failed to parse project file", "path", path, "error", err)
		return []string{}, []string{}
	}
	packages := append(info.packages, a.packagesConfig(filepath.Join(filepath.Dir(path), "packages.config"))...)
	if info.frameworks == nil {
		info.frameworks = []string{}
	}
	if packages == nil {
		packages = []string{}
	}
	return info.frameworks, packages
}

func (a *Analyzer) packagesConfig(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var doc struct {
		Packages []struct {
			ID      string `xml:"id,attr"`
			Version string `xml:"version,attr"`
		} `xml:"package"`
	}
	if err := xml.NewDecoder(f).Decode(&doc); err != nil {
		a.logger().Error("failed to parse packages.config", "path", path, "error", err)
		return nil
	}
	var out []string
	for _, p := range doc.Packages {
		if p.ID != "" && p.Version != "" {
			out = append(out, p.ID+"="+p.Version)
		}
	}
	return out
}

// ProjectStyle reports SDK-style when the root element carries an Sdk attribute.
func (a *Analyzer) ProjectStyle(path string) string {
	info, err := readProject(path)
	if err != nil {
		return StyleUnknown
	}
	if info.sdk {
		return StyleSDK
	}
	return StyleClassic
}

// UsesTestingPlatform reports whether the project opts into the NUnit runner
// for Microsoft.Testing.Platform.
func (a *Analyzer) UsesTestingPlatform(path string) bool {
	info, err := readProject(path)
	return err == nil && info.enableNUnitRunner
}

// TargetsNetFx reports whether the project declares a .NET Framework target.
func (a *Analyzer) TargetsNetFx(path string) bool {
	frameworks, _ := a.Parse(path)
	return HasNetFx(frameworks)
}

// CustomScripts returns the run_* scripts in dir for the current platform, sorted.
func (a *Analyzer) CustomScripts(dir string) []string {
	ext := ".sh"
	if a.goos() == "windows" {
		ext = ".cmd"
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "run_*"+ext))
	sort.Strings(matches)
	return matches
}

// HasCustomScripts reports whether dir defines custom test scripts.
func (a *Analyzer) HasCustomScripts(dir string) bool {
	return len(a.CustomScripts(dir)) > 0
}

func (a *Analyzer) goos() string {
	if a.GOOS != "" {
		return a.GOOS
	}
	return runtime.GOOS
}

func (a *Analyzer) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}
