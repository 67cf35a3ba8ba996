package cmd

import "github.com/spiffcs/stalebot/config"

// Options holds the shared command-line options for the stalebot CLI.
type Options struct {
	Token         string
	Repo          string
	DaysStale     string // kept as text so an unset flag can defer to the environment
	OnlyWeekdays  bool
	IgnoreColumns []string
	Workers       int
	Format        string
	Timeout       string
	Pushgateway   string
	Verbosity     int
	DryRun        bool
	Strict        bool  // Exit non-zero when any issue, page or comment failed
	TUI           *bool // nil = auto-detect, true = force TUI, false = disable TUI

	SkipPullRequests bool

	// Profiling options
	CPUProfile string // Write CPU profile to file
	MemProfile string // Write memory profile to file
	Trace      string // Write execution trace to file
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// NewOptions creates a new Options with defaults and applies any provided options.
func NewOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithToken sets the GitHub token.
func WithToken(token string) Option {
	return func(o *Options) {
		o.Token = token
	}
}

// WithRepo sets the repository (owner/name).
func WithRepo(repo string) Option {
	return func(o *Options) {
		o.Repo = repo
	}
}

// WithDaysStale sets the staleness threshold in days.
func WithDaysStale(days string) Option {
	return func(o *Options) {
		o.DaysStale = days
	}
}

// WithOnlyWeekdays counts only Monday to Friday when aging issues.
func WithOnlyWeekdays(only bool) Option {
	return func(o *Options) {
		o.OnlyWeekdays = only
	}
}

// WithIgnoreColumns sets the project column ids whose issues are never bumped.
func WithIgnoreColumns(columns ...string) Option {
	return func(o *Options) {
		o.IgnoreColumns = columns
	}
}

// WithWorkers sets the number of concurrent issue evaluations.
func WithWorkers(workers int) Option {
	return func(o *Options) {
		o.Workers = workers
	}
}

// WithFormat sets the report format (table, json, markdown).
func WithFormat(format string) Option {
	return func(o *Options) {
		o.Format = format
	}
}

// WithTimeout sets the overall deadline (e.g., "10m", "1h").
func WithTimeout(timeout string) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithDryRun evaluates without posting comments.
func WithDryRun(dryRun bool) Option {
	return func(o *Options) {
		o.DryRun = dryRun
	}
}

// WithStrict makes any failed unit fail the command.
func WithStrict(strict bool) Option {
	return func(o *Options) {
		o.Strict = strict
	}
}

// WithVerbosity sets the verbosity level.
func WithVerbosity(v int) Option {
	return func(o *Options) {
		o.Verbosity = v
	}
}

// WithTUI controls TUI mode (nil = auto-detect, true = force, false = disable).
func WithTUI(tui *bool) Option {
	return func(o *Options) {
		o.TUI = tui
	}
}

// inputs converts the options into resolver inputs. changed reports
// whether a boolean flag was given explicitly; unset booleans defer to the
// environment and config file.
func (o *Options) inputs(changed func(name string) bool) config.Inputs {
	in := config.Inputs{
		Token:         o.Token,
		Repo:          o.Repo,
		DaysStale:     o.DaysStale,
		IgnoreColumns: o.IgnoreColumns,
		Workers:       o.Workers,
		Format:        o.Format,
		Pushgateway:   o.Pushgateway,
	}
	if changed("only-weekdays") {
		v := o.OnlyWeekdays
		in.OnlyWeekdays = &v
	}
	if changed("skip-pull-requests") {
		v := o.SkipPullRequests
		in.SkipPullRequests = &v
	}
	return in
}
