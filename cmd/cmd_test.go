package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gh "github.com/google/go-github/v57/github"
	"github.com/spiffcs/stalebot/config"
	"github.com/spiffcs/stalebot/internal/stale"
)

func TestNew(t *testing.T) {
	cmd := New()
	if cmd == nil {
		t.Fatal("New() returned nil")
	}
	if cmd.Use != "stalebot" {
		t.Errorf("expected Use to be 'stalebot', got %q", cmd.Use)
	}

	for _, name := range []string{"run", "config", "version", "ratelimit"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("New() is missing the %q subcommand", name)
		}
	}
}

func TestRootAndRunShareFlags(t *testing.T) {
	opts := NewOptions()
	run := NewCmdRun(opts)
	root := New()

	for _, name := range []string{"token", "repo", "days-stale", "only-weekdays", "ignore-columns",
		"dry-run", "strict", "workers", "timeout", "output", "tui", "pushgateway", "skip-pull-requests"} {
		if run.Flags().Lookup(name) == nil {
			t.Errorf("run command is missing --%s", name)
		}
		if root.Flags().Lookup(name) == nil {
			t.Errorf("root command is missing --%s", name)
		}
	}
}

func TestNewCmdConfig(t *testing.T) {
	cmd := NewCmdConfig()
	if cmd == nil {
		t.Fatal("NewCmdConfig() returned nil")
	}
	if cmd.Use != "config" {
		t.Errorf("expected Use to be 'config', got %q", cmd.Use)
	}
}

func TestNewCmdVersion(t *testing.T) {
	SetVersionInfo("1.0.0", "abc123", "2024-01-01")

	var buf bytes.Buffer
	cmd := NewCmdVersion()
	cmd.SetOut(&buf)
	cmd.Run(cmd, nil)

	if got := buf.String(); !strings.Contains(got, "stalebot 1.0.0") || !strings.Contains(got, "abc123") {
		t.Errorf("version output = %q, want name, version and commit", got)
	}
}

func TestNewOptions(t *testing.T) {
	opts := NewOptions(
		WithToken("t"),
		WithRepo("acme/widgets"),
		WithDaysStale("7"),
		WithOnlyWeekdays(true),
		WithIgnoreColumns("1", "2"),
		WithWorkers(3),
		WithFormat("json"),
		WithTimeout("10m"),
		WithDryRun(true),
		WithStrict(true),
		WithVerbosity(2),
	)

	if opts.Repo != "acme/widgets" || opts.DaysStale != "7" || !opts.OnlyWeekdays ||
		len(opts.IgnoreColumns) != 2 || opts.Workers != 3 || opts.Format != "json" ||
		opts.Timeout != "10m" || !opts.DryRun || !opts.Strict || opts.Verbosity != 2 {
		t.Errorf("NewOptions() = %+v", opts)
	}
}

func TestOptionsInputs(t *testing.T) {
	opts := NewOptions(WithDaysStale("5"), WithOnlyWeekdays(true))

	tests := []struct {
		name        string
		changed     map[string]bool
		wantWeekday *bool
	}{
		{"unset defers to environment", map[string]bool{}, nil},
		{"explicit flag", map[string]bool{"only-weekdays": true}, &opts.OnlyWeekdays},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := opts.inputs(func(name string) bool { return tt.changed[name] })
			if in.DaysStale != "5" {
				t.Errorf("inputs().DaysStale = %q, want 5", in.DaysStale)
			}
			switch {
			case tt.wantWeekday == nil && in.OnlyWeekdays != nil:
				t.Errorf("inputs().OnlyWeekdays = %v, want nil", *in.OnlyWeekdays)
			case tt.wantWeekday != nil && (in.OnlyWeekdays == nil || *in.OnlyWeekdays != *tt.wantWeekday):
				t.Errorf("inputs().OnlyWeekdays = %v, want %v", in.OnlyWeekdays, *tt.wantWeekday)
			}
			if in.SkipPullRequests != nil {
				t.Errorf("inputs().SkipPullRequests = %v, want nil", *in.SkipPullRequests)
			}
		})
	}
}

func TestTUIFlag(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"true", "true", false},
		{"no", "false", false},
		{"auto", "auto", false},
		{"maybe", "auto", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			opts := NewOptions()
			f := newTUIFlag(opts)
			err := f.Set(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got := f.String(); got != tt.want {
				t.Errorf("String() after Set(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestShouldUseTUI(t *testing.T) {
	on := true

	tests := []struct {
		name string
		opts *Options
		want bool
	}{
		{"forced", NewOptions(WithTUI(&on)), true},
		{"verbose wins", NewOptions(WithTUI(&on), WithVerbosity(1)), false},
		{"json output", NewOptions(WithTUI(&on), WithFormat("json")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldUseTUI(tt.opts); got != tt.want {
				t.Errorf("shouldUseTUI() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClientOptions(t *testing.T) {
	env := map[string]string{
		envAPIURL:     "https://ghe.example.com/api/v3",
		envGraphQLURL: "https://ghe.example.com/api/graphql",
	}
	if got := clientOptions(func(k string) string { return env[k] }); len(got) != 2 {
		t.Errorf("clientOptions() returned %d options, want 2", len(got))
	}
	if got := clientOptions(func(string) string { return "" }); len(got) != 0 {
		t.Errorf("clientOptions() without env returned %d options, want 0", len(got))
	}
}

func TestPrintRateLimits(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	limits := &gh.RateLimits{
		Core:    &gh.Rate{Limit: 5000, Remaining: 4990, Reset: gh.Timestamp{Time: now.Add(time.Minute)}},
		GraphQL: &gh.Rate{Limit: 5000, Remaining: 12, Reset: gh.Timestamp{Time: now.Add(-time.Minute)}},
	}

	var buf bytes.Buffer
	printRateLimits(&buf, limits, now)

	got := buf.String()
	for _, want := range []string{
		"4990/5000 remaining (resets in 1m0s)",
		"12/5000 remaining (resets in 0s)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("printRateLimits() missing %q:\n%s", want, got)
		}
	}
}

func TestConfigDefaultsJSON(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewCmdConfigDefaults()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"-o", "json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config defaults error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("config defaults output is not JSON: %v", err)
	}
	if got["days_stale"] != float64(14) {
		t.Errorf("days_stale = %v, want 14", got["days_stale"])
	}
}

func TestConfigInitLocal(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out bytes.Buffer
	if err := runConfigInit(strings.NewReader("2\n"), &out, false, false); err != nil {
		t.Fatalf("runConfigInit() error = %v", err)
	}
	if _, err := os.Stat(".stalebot.yaml"); err != nil {
		t.Errorf("local config was not created: %v", err)
	}

	if err := runConfigInit(strings.NewReader(""), &out, false, true); err == nil {
		t.Error("runConfigInit() over an existing file error = nil, want error")
	}
	if err := runConfigInit(strings.NewReader(""), &out, true, true); err == nil {
		t.Error("runConfigInit(--global --local) error = nil, want error")
	}
}

// fakeGitHub serves the endpoints a run touches. Issue #1 is a month old
// with an empty timeline, #2 was updated an hour ago.
type fakeGitHub struct {
	commentStatus int
	comments      atomic.Int32
	timelines     atomic.Int32
	requests      atomic.Int32
}

func (f *fakeGitHub) start(t *testing.T) *httptest.Server {
	t.Helper()
	now := time.Now().UTC()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		http.NotFound(w, r)
	})
	mux.HandleFunc("GET /rate_limit", func(w http.ResponseWriter, _ *http.Request) {
		f.requests.Add(1)
		fmt.Fprintf(w, `{"resources": {"core": {"limit": 5000, "remaining": 4990, "reset": %d}}}`,
			now.Add(time.Hour).Unix())
	})
	mux.HandleFunc("GET /repos/acme/widgets/issues", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if page := r.URL.Query().Get("page"); page != "" && page != "1" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprintf(w, `[
			{"number": 1, "title": "Old bug", "updated_at": %q},
			{"number": 2, "title": "New bug", "updated_at": %q}
		]`, now.AddDate(0, 0, -30).Format(time.RFC3339), now.Add(-time.Hour).Format(time.RFC3339))
	})
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, _ *http.Request) {
		f.requests.Add(1)
		f.timelines.Add(1)
		fmt.Fprint(w, `{"data": {"repository": {"issueOrPullRequest": {"timelineItems": {"totalCount": 0, "updatedAt": null}}}}}`)
	})
	mux.HandleFunc("POST /repos/acme/widgets/issues/1/comments", func(w http.ResponseWriter, _ *http.Request) {
		f.requests.Add(1)
		f.comments.Add(1)
		w.WriteHeader(f.commentStatus)
		fmt.Fprint(w, `{"id": 1}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// runEnv isolates a run from the developer's config files and environment.
func runEnv(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	summary := filepath.Join(t.TempDir(), "summary.md")
	for k, v := range map[string]string{
		envAPIURL:              srv.URL,
		envGraphQLURL:          srv.URL + "/graphql",
		envActions:             "",
		envStepSummary:         summary,
		"INPUT_TOKEN":          "",
		"INPUT_DAYS-STALE":     "",
		"INPUT_ONLY-WEEKDAYS":  "",
		"INPUT_IGNORE-COLUMNS": "",
		"GITHUB_TOKEN":         "test-token",
		"GITHUB_REPOSITORY":    "acme/widgets",
	} {
		t.Setenv(k, v)
	}
	return summary
}

func TestRunDryRun(t *testing.T) {
	fake := &fakeGitHub{commentStatus: http.StatusCreated}
	summaryPath := runEnv(t, fake.start(t))

	var out bytes.Buffer
	root := New()
	root.SetOut(&out)
	root.SetArgs([]string{"run", "--days-stale", "5", "--dry-run", "--tui=false", "-o", "json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("run error = %v", err)
	}

	var report struct {
		DryRun  bool          `json:"dryRun"`
		Summary stale.Summary `json:"summary"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, out.String())
	}

	want := stale.Summary{Fetched: 2, Evaluated: 2, Fresh: 1, Stale: 1, Notified: 1}
	if !report.DryRun || report.Summary != want {
		t.Errorf("report = %+v, want dry run with summary %+v", report, want)
	}
	if n := fake.comments.Load(); n != 0 {
		t.Errorf("dry run posted %d comments, want 0", n)
	}
	if n := fake.timelines.Load(); n != 1 {
		t.Errorf("timeline queried %d times, want 1 (fresh issues short-circuit)", n)
	}

	summary, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("job summary not written: %v", err)
	}
	if !strings.Contains(string(summary), "acme/widgets") {
		t.Errorf("job summary does not name the repository:\n%s", summary)
	}
}

func TestRunStrictFailsOnCommentError(t *testing.T) {
	fake := &fakeGitHub{commentStatus: http.StatusInternalServerError}
	runEnv(t, fake.start(t))

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"failures are reported but tolerated", []string{}, false},
		{"strict", []string{"--strict"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := New()
			root.SetOut(&bytes.Buffer{})
			root.SetArgs(append([]string{"--days-stale", "5", "--tui=false", "-o", "markdown"}, tt.args...))

			err := root.Execute()
			if tt.wantErr != (err != nil) {
				t.Fatalf("run error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnitsFailed) {
				t.Errorf("run error = %v, want ErrUnitsFailed", err)
			}
		})
	}

	if n := fake.comments.Load(); n != 2 {
		t.Errorf("comment attempts = %d, want 2 (one per run)", n)
	}
}

func TestRunConfigurationError(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		localYAML string
		wantField string
	}{
		{
			name:      "malformed days-stale",
			args:      []string{"--days-stale", "soon"},
			wantField: "days-stale",
		},
		{
			name:      "malformed timeout",
			args:      []string{"--days-stale", "5", "--timeout", "soonish"},
			wantField: "timeout",
		},
		{
			name:      "malformed local config file",
			args:      []string{"--days-stale", "5"},
			localYAML: "days_stale: [not, a, number\n",
			wantField: "config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeGitHub{commentStatus: http.StatusCreated}
			runEnv(t, fake.start(t))
			if tt.localYAML != "" {
				if err := os.WriteFile(".stalebot.yaml", []byte(tt.localYAML), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			root := New()
			root.SetOut(&bytes.Buffer{})
			root.SetArgs(append(tt.args, "--tui=false"))

			err := root.Execute()
			var cfgErr *config.Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("run error = %v, want *config.Error", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("config.Error field = %q, want %q", cfgErr.Field, tt.wantField)
			}
			if n := fake.requests.Load(); n != 0 {
				t.Errorf("run made %d requests before configuration was valid, want 0", n)
			}
		})
	}
}

func TestRunTimeout(t *testing.T) {
	fake := &fakeGitHub{commentStatus: http.StatusCreated}
	runEnv(t, fake.start(t))

	root := New()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--days-stale", "5", "--tui=false", "--timeout", "1ns"})

	err := root.Execute()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run error = %v, want context.DeadlineExceeded", err)
	}
	if !errors.Is(err, stale.ErrNoIssuePages) {
		t.Errorf("run error = %v, want stale.ErrNoIssuePages", err)
	}
	if n := fake.comments.Load(); n != 0 {
		t.Errorf("run past its deadline posted %d comments, want 0", n)
	}
	if n := fake.timelines.Load(); n != 0 {
		t.Errorf("run past its deadline queried %d timelines, want 0", n)
	}
}

func TestRunCancelled(t *testing.T) {
	fake := &fakeGitHub{commentStatus: http.StatusCreated}
	runEnv(t, fake.start(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := New()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--days-stale", "5", "--tui=false"})

	err := root.ExecuteContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("run error = %v, want context.Canceled", err)
	}
	if n := fake.comments.Load(); n != 0 {
		t.Errorf("cancelled run posted %d comments, want 0", n)
	}
}
