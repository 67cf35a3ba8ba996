package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spiffcs/stalebot/internal/constants"
	"github.com/spiffcs/stalebot/internal/stale"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration file. Tokens are never
// part of it; they come from flags or the environment only.
type Config struct {
	DaysStale        *int     `yaml:"days_stale,omitempty" json:"days_stale,omitempty"`
	OnlyWeekdays     *bool    `yaml:"only_weekdays,omitempty" json:"only_weekdays,omitempty"`
	IgnoreColumns    []string `yaml:"ignore_columns,omitempty" json:"ignore_columns,omitempty"`
	CommentTemplate  string   `yaml:"comment_template,omitempty" json:"comment_template,omitempty"`
	Workers          int      `yaml:"workers,omitempty" json:"workers,omitempty"`
	SkipPullRequests *bool    `yaml:"skip_pull_requests,omitempty" json:"skip_pull_requests,omitempty"`
	DefaultFormat    string   `yaml:"default_format,omitempty" json:"default_format,omitempty"`
	Pushgateway      string   `yaml:"pushgateway,omitempty" json:"pushgateway,omitempty"`
}

// DefaultConfigDir returns the default config directory
func DefaultConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".stalebot"
	}
	return filepath.Join(configDir, "stalebot")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LocalConfigPath returns the path to the local config file in the current directory
func LocalConfigPath() string {
	return ".stalebot.yaml"
}

// Load loads the configuration from disk.
// It first loads the global config from XDG config directory, then merges
// any local .stalebot.yaml config on top (local values take precedence).
func Load() (*Config, error) {
	return LoadFrom(ConfigPath(), LocalConfigPath())
}

// LoadFrom loads and merges the config files at the given paths. Missing
// files are skipped.
func LoadFrom(globalPath, localPath string) (*Config, error) {
	cfg := &Config{
		DefaultFormat: "table",
	}

	global, err := readConfigFile(globalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load global config file: %w", err)
	}
	if global != nil {
		cfg = mergeConfig(cfg, global)
	}

	local, err := readConfigFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load local config file: %w", err)
	}
	if local != nil {
		cfg = mergeConfig(cfg, local)
	}

	// Set defaults if still empty
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = "table"
	}

	return cfg, nil
}

// readConfigFile returns nil, nil when path does not exist.
func readConfigFile(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// mergeConfig merges local config on top of global config.
// Local values take precedence; unset local values preserve global values.
func mergeConfig(global, local *Config) *Config {
	result := *global

	if local.DaysStale != nil {
		result.DaysStale = local.DaysStale
	}
	if local.OnlyWeekdays != nil {
		result.OnlyWeekdays = local.OnlyWeekdays
	}
	// Lists are replaced, not appended
	if len(local.IgnoreColumns) > 0 {
		result.IgnoreColumns = local.IgnoreColumns
	}
	if local.CommentTemplate != "" {
		result.CommentTemplate = local.CommentTemplate
	}
	if local.Workers != 0 {
		result.Workers = local.Workers
	}
	if local.SkipPullRequests != nil {
		result.SkipPullRequests = local.SkipPullRequests
	}
	if local.DefaultFormat != "" {
		result.DefaultFormat = local.DefaultFormat
	}
	if local.Pushgateway != "" {
		result.Pushgateway = local.Pushgateway
	}

	return &result
}

// DefaultConfig returns a fully populated config with all default values.
// This is useful for generating a complete config file template.
func DefaultConfig() *Config {
	daysStale := DefaultDaysStale
	onlyWeekdays := false
	skipPRs := false

	return &Config{
		DaysStale:        &daysStale,
		OnlyWeekdays:     &onlyWeekdays,
		IgnoreColumns:    []string{},
		CommentTemplate:  stale.DefaultCommentTemplate,
		Workers:          constants.DefaultWorkers,
		SkipPullRequests: &skipPRs,
		DefaultFormat:    "table",
	}
}

// ToYAML returns the config as a YAML string
func (c *Config) ToYAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// ConfigPathInfo contains information about config file paths
type ConfigPathInfo struct {
	GlobalPath   string
	GlobalExists bool
	LocalPath    string
	LocalExists  bool
}

// GetConfigPaths returns path info for both global and local configs
func GetConfigPaths() ConfigPathInfo {
	globalPath := ConfigPath()
	localPath := LocalConfigPath()

	// Get absolute path for local config
	absLocalPath, err := filepath.Abs(localPath)
	if err != nil {
		absLocalPath = localPath
	}

	_, globalErr := os.Stat(globalPath)
	_, localErr := os.Stat(localPath)

	return ConfigPathInfo{
		GlobalPath:   globalPath,
		GlobalExists: globalErr == nil,
		LocalPath:    absLocalPath,
		LocalExists:  localErr == nil,
	}
}

// MinimalConfig returns a minimal config template with comments
func MinimalConfig() string {
	return `# stalebot configuration file
# See: stalebot config defaults  (for all available options)

# Issues older than this many days get a reminder
days_stale: 14

# Count only Monday to Friday when measuring age
only_weekdays: false

# Project column IDs whose cards are never bumped (optional)
# ignore_columns:
#   - 1234567

# Skip pull requests returned by the issues listing (optional)
# skip_pull_requests: true

# Output format: table, json or markdown
default_format: table

# Push run counters to a Prometheus Pushgateway (optional)
# pushgateway: http://localhost:9091
`
}

// SaveTo writes content to a specific path, creating directories as needed
func SaveTo(path string, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}
