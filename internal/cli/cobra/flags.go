package cobra

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/NielsdaWheelz/issuerunner/internal/config"
	"github.com/NielsdaWheelz/issuerunner/internal/render"
)

// enumValue is a string flag restricted to a fixed set of values.
// Matching ignores case; the stored value is the canonical spelling.
type enumValue struct {
	target  *string
	allowed []string
}

var _ pflag.Value = (*enumValue)(nil)

func newEnumValue(target *string, def string, allowed ...string) *enumValue {
	*target = def
	return &enumValue{target: target, allowed: allowed}
}

func (e *enumValue) String() string { return *e.target }

func (e *enumValue) Type() string { return strings.Join(e.allowed, "|") }

func (e *enumValue) Set(s string) error {
	for _, a := range e.allowed {
		if strings.EqualFold(strings.TrimSpace(s), a) {
			*e.target = a
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(e.allowed, ", "))
}

// feedValue parses --feed into a config.Feed.
type feedValue struct {
	target *config.Feed
}

var _ pflag.Value = (*feedValue)(nil)

func (f *feedValue) String() string { return strings.ToLower(string(*f.target)) }

func (f *feedValue) Type() string { return "stable|beta|alpha|local" }

func (f *feedValue) Set(s string) error {
	feed, err := config.ParseFeed(s)
	if err != nil {
		return err
	}
	*f.target = feed
	return nil
}

// formatValue parses --format into a render.Format.
type formatValue struct {
	target *render.Format
}

var _ pflag.Value = (*formatValue)(nil)

func (f *formatValue) String() string { return string(*f.target) }

func (f *formatValue) Type() string { return "text|json|yaml" }

func (f *formatValue) Set(s string) error {
	format, err := render.ParseFormat(s)
	if err != nil {
		return err
	}
	*f.target = format
	return nil
}

func addFormatFlag(flags *pflag.FlagSet, target *render.Format) {
	*target = render.FormatText
	flags.Var(&formatValue{target: target}, "format", "output format")
}
