package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spiffcs/stalebot/internal/constants"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string {
		return vars[key]
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

// baseEnv satisfies the required inputs so tests can focus on one field.
func baseEnv() map[string]string {
	return map[string]string{
		EnvGitHubToken:      "ghp_test",
		EnvGitHubRepository: "acme/widgets",
		EnvInputDaysStale:   "5",
	}
}

func TestResolveActionInputs(t *testing.T) {
	vars := map[string]string{
		EnvInputToken:         "input-token",
		EnvGitHubToken:        "env-token",
		EnvGitHubRepository:   "acme/widgets",
		EnvInputDaysStale:     "7",
		EnvInputOnlyWeekdays:  "true",
		EnvInputIgnoreColumns: "123, 456,",
	}

	s, err := Resolve(Inputs{}, nil, env(vars))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if s.Token != "input-token" {
		t.Errorf("Resolve().Token = %q, want input-token", s.Token)
	}
	if s.Repo.Owner != "acme" || s.Repo.Name != "widgets" {
		t.Errorf("Resolve().Repo = %v, want acme/widgets", s.Repo)
	}
	if s.Policy.DaysStale != 7 || !s.Policy.OnlyWeekdays {
		t.Errorf("Resolve().Policy = %+v, want 7 days weekdays only", s.Policy)
	}
	if want := []int64{123, 456}; !reflect.DeepEqual(s.Columns, want) {
		t.Errorf("Resolve().Columns = %v, want %v", s.Columns, want)
	}
	if s.Workers != constants.DefaultWorkers {
		t.Errorf("Resolve().Workers = %d, want %d", s.Workers, constants.DefaultWorkers)
	}
	if s.Format != "table" {
		t.Errorf("Resolve().Format = %q, want table", s.Format)
	}
	if s.CommentTemplate == nil {
		t.Error("Resolve().CommentTemplate = nil, want default template")
	}
}

func TestResolvePrecedence(t *testing.T) {
	cfg := &Config{
		DaysStale:     intPtr(30),
		OnlyWeekdays:  boolPtr(true),
		IgnoreColumns: []string{"111"},
		Workers:       4,
		DefaultFormat: "json",
	}

	t.Run("flags win", func(t *testing.T) {
		in := Inputs{
			Token:         "flag-token",
			Repo:          "other/repo",
			DaysStale:     "2",
			OnlyWeekdays:  boolPtr(false),
			IgnoreColumns: []string{"999"},
			Workers:       3,
			Format:        "markdown",
		}
		s, err := Resolve(in, cfg, env(baseEnv()))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if s.Token != "flag-token" || s.Repo.FullName() != "other/repo" {
			t.Errorf("Resolve() token/repo = %q/%q, want flag values", s.Token, s.Repo)
		}
		if s.Policy.DaysStale != 2 || s.Policy.OnlyWeekdays {
			t.Errorf("Resolve().Policy = %+v, want flag values", s.Policy)
		}
		if !reflect.DeepEqual(s.Columns, []int64{999}) || s.Workers != 3 || s.Format != "markdown" {
			t.Errorf("Resolve() = %+v, want flag values", s)
		}
	})

	t.Run("action inputs beat config", func(t *testing.T) {
		s, err := Resolve(Inputs{}, cfg, env(baseEnv()))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if s.Policy.DaysStale != 5 {
			t.Errorf("Resolve().Policy.DaysStale = %d, want 5", s.Policy.DaysStale)
		}
	})

	t.Run("config fills the rest", func(t *testing.T) {
		vars := baseEnv()
		delete(vars, EnvInputDaysStale)
		s, err := Resolve(Inputs{}, cfg, env(vars))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if s.Policy.DaysStale != 30 || !s.Policy.OnlyWeekdays {
			t.Errorf("Resolve().Policy = %+v, want config values", s.Policy)
		}
		if !reflect.DeepEqual(s.Columns, []int64{111}) || s.Workers != 4 || s.Format != "json" {
			t.Errorf("Resolve() = %+v, want config values", s)
		}
	})
}

func TestResolveOnlyWeekdaysString(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"True", false},
		{"yes", false},
		{"false", false},
		{"1", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			vars := baseEnv()
			vars[EnvInputOnlyWeekdays] = tt.value
			s, err := Resolve(Inputs{}, nil, env(vars))
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if s.Policy.OnlyWeekdays != tt.want {
				t.Errorf("only-weekdays %q = %v, want %v", tt.value, s.Policy.OnlyWeekdays, tt.want)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name      string
		in        Inputs
		cfg       *Config
		unset     string
		set       map[string]string
		wantField string
	}{
		{name: "missing token", unset: EnvGitHubToken, wantField: "token"},
		{name: "missing repository", unset: EnvGitHubRepository, wantField: "repository"},
		{name: "malformed repository", in: Inputs{Repo: "widgets"}, wantField: "repository"},
		{name: "missing days-stale", unset: EnvInputDaysStale, wantField: "days-stale"},
		{name: "malformed days-stale", set: map[string]string{EnvInputDaysStale: "abc"}, wantField: "days-stale"},
		{name: "negative days-stale", in: Inputs{DaysStale: "-1"}, wantField: "days-stale"},
		{name: "non-numeric column", set: map[string]string{EnvInputIgnoreColumns: "123,todo"}, wantField: "ignore-columns"},
		{name: "zero column", in: Inputs{IgnoreColumns: []string{"0"}}, wantField: "ignore-columns"},
		{name: "bad template", cfg: &Config{CommentTemplate: "{{.Nope"}, wantField: "comment_template"},
		{name: "bad workers", in: Inputs{Workers: -2}, wantField: "workers"},
		{name: "bad format", in: Inputs{Format: "xml"}, wantField: "output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := baseEnv()
			delete(vars, tt.unset)
			for k, v := range tt.set {
				vars[k] = v
			}

			_, err := Resolve(tt.in, tt.cfg, env(vars))

			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Resolve() error = %v, want *Error", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Resolve() error field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestResolveMissingIsErrMissing(t *testing.T) {
	_, err := Resolve(Inputs{}, nil, env(nil))
	if !errors.Is(err, ErrMissing) {
		t.Errorf("Resolve() error = %v, want ErrMissing", err)
	}
}

func TestLoadFromMergesLocalOverGlobal(t *testing.T) {
	dir := t.TempDir()
	globalPath := filepath.Join(dir, "config.yaml")
	localPath := filepath.Join(dir, ".stalebot.yaml")

	writeFile(t, globalPath, `
days_stale: 14
only_weekdays: true
ignore_columns: [111, 222]
pushgateway: http://gateway:9091
`)
	writeFile(t, localPath, `
days_stale: 3
ignore_columns:
  - "333"
default_format: markdown
`)

	cfg, err := LoadFrom(globalPath, localPath)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.DaysStale == nil || *cfg.DaysStale != 3 {
		t.Errorf("LoadFrom().DaysStale = %v, want 3", cfg.DaysStale)
	}
	if cfg.OnlyWeekdays == nil || !*cfg.OnlyWeekdays {
		t.Errorf("LoadFrom().OnlyWeekdays = %v, want true from global", cfg.OnlyWeekdays)
	}
	if want := []string{"333"}; !reflect.DeepEqual(cfg.IgnoreColumns, want) {
		t.Errorf("LoadFrom().IgnoreColumns = %v, want %v", cfg.IgnoreColumns, want)
	}
	if cfg.DefaultFormat != "markdown" {
		t.Errorf("LoadFrom().DefaultFormat = %q, want markdown", cfg.DefaultFormat)
	}
	if cfg.Pushgateway != "http://gateway:9091" {
		t.Errorf("LoadFrom().Pushgateway = %q, want global value", cfg.Pushgateway)
	}
}

func TestLoadFromMissingFiles(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(filepath.Join(dir, "nope.yaml"), filepath.Join(dir, "also-nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.DefaultFormat != "table" {
		t.Errorf("LoadFrom().DefaultFormat = %q, want table", cfg.DefaultFormat)
	}
	if cfg.DaysStale != nil {
		t.Errorf("LoadFrom().DaysStale = %v, want nil", *cfg.DaysStale)
	}
}

func TestLoadFromMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "days_stale: [not, a, number\n")

	if _, err := LoadFrom(path, ""); err == nil {
		t.Error("LoadFrom() error = nil, want parse error")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, "STALEBOT_TEST_FROM_DOTENV=hello\nSTALEBOT_TEST_PRESET=from-file\n")

	t.Setenv("STALEBOT_TEST_PRESET", "from-env")
	t.Setenv("STALEBOT_TEST_FROM_DOTENV", "")
	os.Unsetenv("STALEBOT_TEST_FROM_DOTENV")

	if err := LoadEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := os.Getenv("STALEBOT_TEST_FROM_DOTENV"); got != "hello" {
		t.Errorf("STALEBOT_TEST_FROM_DOTENV = %q, want hello", got)
	}
	if got := os.Getenv("STALEBOT_TEST_PRESET"); got != "from-env" {
		t.Errorf("STALEBOT_TEST_PRESET = %q, want existing value kept", got)
	}
}

func TestDefaultConfigRoundTrips(t *testing.T) {
	out, err := DefaultConfig().ToYAML()
	if err != nil {
		t.Fatalf("ToYAML() error = %v", err)
	}
	for _, key := range []string{"days_stale: 14", "only_weekdays: false", "comment_template:", "workers: 10"} {
		if !strings.Contains(out, key) {
			t.Errorf("ToYAML() missing %q in:\n%s", key, out)
		}
	}
}

func TestMinimalConfigParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, MinimalConfig())

	cfg, err := LoadFrom(path, "")
	if err != nil {
		t.Fatalf("LoadFrom(MinimalConfig) error = %v", err)
	}
	if cfg.DaysStale == nil || *cfg.DaysStale != DefaultDaysStale {
		t.Errorf("MinimalConfig days_stale = %v, want %d", cfg.DaysStale, DefaultDaysStale)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := SaveTo(path, "days_stale: 1\n"); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "days_stale: 1\n" {
		t.Errorf("SaveTo() wrote %q", data)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}
