package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the data directory.
const FileName = "pagebuilder.yaml"

// Config holds all page builder configuration.
type Config struct {
	// Root for the database and media when their paths are relative.
	DataDir      string `yaml:"data_dir"`
	DatabasePath string `yaml:"database_path"`

	Media    MediaConfig    `yaml:"media"`
	Editor   EditorConfig   `yaml:"editor"`
	Autosave AutosaveConfig `yaml:"autosave"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MediaConfig configures the asset library.
type MediaConfig struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"`
	Watch   bool   `yaml:"watch"`
}

// EditorConfig configures edit sessions.
type EditorConfig struct {
	Debounce        string `yaml:"debounce"`
	RealtimePreview bool   `yaml:"realtime_preview"`
}

// AutosaveConfig configures periodic saving of the open page.
type AutosaveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron spec or @every
}

// HistoryConfig configures page revisions.
type HistoryConfig struct {
	MaxRevisions int `yaml:"max_revisions"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:      DefaultDataDir(),
		DatabasePath: "pagebuilder.db",

		Media: MediaConfig{
			Dir:     "media",
			BaseURL: "/media",
			Watch:   true,
		},

		Editor: EditorConfig{
			Debounce:        "1s",
			RealtimePreview: true,
		},

		Autosave: AutosaveConfig{
			Enabled:  true,
			Schedule: "@every 30s",
		},

		History: HistoryConfig{
			MaxRevisions: 40,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultDataDir is ~/.pagebuilder, or ./.pagebuilder when the home
// directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pagebuilder"
	}
	return filepath.Join(home, ".pagebuilder")
}

// DefaultPath is the config file inside the default data directory.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), FileName)
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("PAGEBUILDER_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if path := os.Getenv("PAGEBUILDER_DB"); path != "" {
		c.DatabasePath = path
	}
	if level := os.Getenv("PAGEBUILDER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if u := os.Getenv("PAGEBUILDER_MEDIA_BASE_URL"); u != "" {
		c.Media.BaseURL = u
	}
}

// DebounceWindow returns the content commit debounce, 1s when unset or invalid.
func (c *Config) DebounceWindow() time.Duration {
	d, err := time.ParseDuration(c.Editor.Debounce)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// DatabaseFile resolves the database path against the data directory.
func (c *Config) DatabaseFile() string {
	return c.resolve(c.DatabasePath, "pagebuilder.db")
}

// MediaDir resolves the media directory against the data directory.
func (c *Config) MediaDir() string {
	return c.resolve(c.Media.Dir, "media")
}

// AutosaveSchedule returns the cron schedule, or "" when autosave is off.
func (c *Config) AutosaveSchedule() string {
	if !c.Autosave.Enabled {
		return ""
	}
	if strings.TrimSpace(c.Autosave.Schedule) == "" {
		return "@every 30s"
	}
	return c.Autosave.Schedule
}

// MaxRevisions returns the history bound, 40 when unset.
func (c *Config) MaxRevisions() int {
	if c.History.MaxRevisions <= 0 {
		return 40
	}
	return c.History.MaxRevisions
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Editor.Debounce != "" {
		if _, err := time.ParseDuration(c.Editor.Debounce); err != nil {
			return fmt.Errorf("invalid editor.debounce %q: %w", c.Editor.Debounce, err)
		}
	}
	valid := false
	for _, l := range ValidLogLevels {
		if strings.EqualFold(c.Logging.Level, l) {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %s (valid: json, console)", c.Logging.Format)
	}
	return nil
}

func (c *Config) resolve(p, fallback string) string {
	if p == "" {
		p = fallback
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}
