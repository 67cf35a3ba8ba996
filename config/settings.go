package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/joho/godotenv"
	"github.com/spiffcs/stalebot/internal/constants"
	"github.com/spiffcs/stalebot/internal/model"
	"github.com/spiffcs/stalebot/internal/stale"
)

// DefaultDaysStale is the threshold written by "config init" and
// "config defaults". A run still requires the value to be set somewhere.
const DefaultDaysStale = 14

// Environment variables read by Resolve. The INPUT_ names are how the
// Actions runner passes action inputs; they keep their hyphens.
const (
	EnvInputToken         = "INPUT_TOKEN"
	EnvInputDaysStale     = "INPUT_DAYS-STALE"
	EnvInputOnlyWeekdays  = "INPUT_ONLY-WEEKDAYS"
	EnvInputIgnoreColumns = "INPUT_IGNORE-COLUMNS"
	EnvGitHubToken        = "GITHUB_TOKEN"
	EnvGitHubRepository   = "GITHUB_REPOSITORY"
)

// Output formats accepted by --output and default_format.
var validFormats = []string{"table", "json", "markdown"}

// ErrMissing marks a required input that was not supplied anywhere.
var ErrMissing = errors.New("required input is missing")

// Error is a configuration error: an input that is missing or malformed.
// It is reported before any request is made.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Inputs are the values given on the command line. Zero values mean the
// flag was not set and lower precedence sources are consulted.
type Inputs struct {
	Token            string
	Repo             string
	DaysStale        string
	OnlyWeekdays     *bool
	IgnoreColumns    []string
	Workers          int
	SkipPullRequests *bool
	Format           string
	Pushgateway      string
}

// Settings are the resolved, validated inputs of a run.
type Settings struct {
	// Token is never logged or written to disk.
	Token            string
	Repo             model.Repository
	Policy           stale.Policy
	Columns          []int64
	CommentTemplate  *template.Template
	Workers          int
	SkipPullRequests bool
	Format           string
	Pushgateway      string
}

// LoadEnv loads a .env file into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Resolve combines flags, environment and config file into Settings.
// Precedence per field is flag, then action input, then plain
// environment, then config file, then default. getenv may be nil to read
// the process environment.
func Resolve(in Inputs, cfg *Config, getenv func(string) string) (Settings, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if cfg == nil {
		cfg = &Config{}
	}

	var s Settings

	s.Token = firstNonEmpty(in.Token, getenv(EnvInputToken), getenv(EnvGitHubToken))
	if s.Token == "" {
		return Settings{}, &Error{Field: "token", Err: ErrMissing}
	}

	repo := firstNonEmpty(in.Repo, getenv(EnvGitHubRepository))
	if repo == "" {
		return Settings{}, &Error{Field: "repository", Err: ErrMissing}
	}
	r, err := model.ParseRepository(repo)
	if err != nil {
		return Settings{}, &Error{Field: "repository", Err: err}
	}
	s.Repo = r

	days, err := resolveDaysStale(in, cfg, getenv)
	if err != nil {
		return Settings{}, err
	}
	s.Policy.DaysStale = days
	s.Policy.OnlyWeekdays = resolveOnlyWeekdays(in, cfg, getenv)

	columns, err := resolveColumns(in, cfg, getenv)
	if err != nil {
		return Settings{}, err
	}
	s.Columns = columns

	tmpl, err := stale.ParseCommentTemplate(cfg.CommentTemplate)
	if err != nil {
		return Settings{}, &Error{Field: "comment_template", Err: err}
	}
	s.CommentTemplate = tmpl

	s.Workers = constants.DefaultWorkers
	switch {
	case in.Workers != 0:
		s.Workers = in.Workers
	case cfg.Workers != 0:
		s.Workers = cfg.Workers
	}
	if s.Workers < 1 {
		return Settings{}, &Error{Field: "workers", Err: fmt.Errorf("must be at least 1, got %d", s.Workers)}
	}

	switch {
	case in.SkipPullRequests != nil:
		s.SkipPullRequests = *in.SkipPullRequests
	case cfg.SkipPullRequests != nil:
		s.SkipPullRequests = *cfg.SkipPullRequests
	}

	s.Format = firstNonEmpty(in.Format, cfg.DefaultFormat, "table")
	if !isValidFormat(s.Format) {
		return Settings{}, &Error{
			Field: "output",
			Err:   fmt.Errorf("unknown format %q (expected one of %s)", s.Format, strings.Join(validFormats, ", ")),
		}
	}

	s.Pushgateway = firstNonEmpty(in.Pushgateway, cfg.Pushgateway)

	return s, nil
}

func resolveDaysStale(in Inputs, cfg *Config, getenv func(string) string) (int, error) {
	raw := firstNonEmpty(in.DaysStale, getenv(EnvInputDaysStale))
	if raw == "" {
		if cfg.DaysStale == nil {
			return 0, &Error{Field: "days-stale", Err: ErrMissing}
		}
		if *cfg.DaysStale < 0 {
			return 0, &Error{Field: "days-stale", Err: fmt.Errorf("must not be negative, got %d", *cfg.DaysStale)}
		}
		return *cfg.DaysStale, nil
	}

	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &Error{Field: "days-stale", Err: fmt.Errorf("%q is not a whole number of days", raw)}
	}
	if days < 0 {
		return 0, &Error{Field: "days-stale", Err: fmt.Errorf("must not be negative, got %d", days)}
	}
	return days, nil
}

// resolveOnlyWeekdays treats a string input as enabled only when it is
// exactly "true".
func resolveOnlyWeekdays(in Inputs, cfg *Config, getenv func(string) string) bool {
	if in.OnlyWeekdays != nil {
		return *in.OnlyWeekdays
	}
	if raw := getenv(EnvInputOnlyWeekdays); raw != "" {
		return raw == "true"
	}
	if cfg.OnlyWeekdays != nil {
		return *cfg.OnlyWeekdays
	}
	return false
}

func resolveColumns(in Inputs, cfg *Config, getenv func(string) string) ([]int64, error) {
	var columns []string
	switch {
	case len(in.IgnoreColumns) > 0:
		columns = in.IgnoreColumns
	case getenv(EnvInputIgnoreColumns) != "":
		columns = stale.SplitColumns(getenv(EnvInputIgnoreColumns))
	default:
		columns = cfg.IgnoreColumns
	}

	// Flag and config values may themselves be comma-separated
	columns = stale.SplitColumns(strings.Join(columns, ","))

	ids, err := stale.ParseColumns(columns)
	if err != nil {
		return nil, &Error{Field: "ignore-columns", Err: err}
	}
	return ids, nil
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
