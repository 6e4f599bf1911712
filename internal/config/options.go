package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/NielsdaWheelz/issuerunner/internal/errors"
)

// Stage timeout bounds.
const (
	DefaultTimeout = 10 * time.Minute
	MinTimeout     = 10 * time.Second
	MaxTimeout     = 24 * time.Hour
)

// Feed is a package source label.
type Feed string

const (
	FeedStable Feed = "Stable"
	FeedBeta   Feed = "Beta"
	FeedAlpha  Feed = "Alpha"
	FeedLocal  Feed = "Local"
)

// ParseFeed parses a feed name case-insensitively.
func ParseFeed(s string) (Feed, error) {
	for _, f := range []Feed{FeedStable, FeedBeta, FeedAlpha, FeedLocal} {
		if strings.EqualFold(strings.TrimSpace(s), string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid feed %q (want stable, beta, alpha, or local)", s)
}

// SameFeed compares two persisted feed labels case-insensitively.
func SameFeed(a, b string) bool {
	return strings.EqualFold(a, b)
}

// RunOptions are the validated options of one `issuerunner run` invocation.
type RunOptions struct {
	IssueNumbers []int         `validate:"dive,gt=0"`
	Scope        string        `validate:"oneof=all open closed new new-and-failed"`
	TestTypes    string        `validate:"oneof=all direct custom"`
	RerunFailed  bool          `validate:"-"`
	Feed         Feed          `validate:"oneof=Stable Beta Alpha Local"`
	NUnitOnly    bool          `validate:"-"`
	Timeout      time.Duration `validate:"gte=10s,lte=24h"`
	SkipNetFx    bool          `validate:"-"`
	OnlyNetFx    bool          `validate:"excluded_with=SkipNetFx"`
}

// DefaultRunOptions returns options for a plain `issuerunner run`.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Scope:     "all",
		TestTypes: "all",
		Feed:      FeedStable,
		Timeout:   DefaultTimeout,
	}
}

// Validate checks field constraints and returns E_INVALID_OPTIONS on failure.
func (o RunOptions) Validate() error {
	if err := validator.New().Struct(o); err != nil {
		return errors.WrapWithDetails(errors.EInvalidOptions, "invalid run options: "+describe(err), err,
			map[string]string{"hint": "see issuerunner run --help"})
	}
	return nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Timeout":
		return fmt.Sprintf("timeout must be between %s and %s", MinTimeout, MaxTimeout)
	case "OnlyNetFx":
		return "--only-netfx and --skip-netfx are mutually exclusive"
	case "IssueNumbers":
		return "issue numbers must be positive"
	}
	return fmt.Sprintf("%s is invalid (%s)", strings.ToLower(fe.Field()), fe.Tag())
}
