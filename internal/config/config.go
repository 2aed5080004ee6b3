package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Queue contains expiry and retention settings for the approval queue.
type Queue struct {
	DefaultTimeoutSeconds int `toml:"default_timeout_seconds"`
	SweepIntervalSeconds  int `toml:"sweep_interval_seconds"`
	// PendingMaxAgeSeconds deletes still-pending items older than this value
	// on every sweep tick. Zero disables the cleanup.
	PendingMaxAgeSeconds int `toml:"pending_max_age_seconds"`
	// DecidedRetentionDays deletes approved/rejected items decided more than
	// this many days ago. Zero keeps decided items forever.
	DecidedRetentionDays int `toml:"decided_retention_days"`
}

// Reviewer contains settings for the interactive terminal reviewer.
type Reviewer struct {
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	Name                string `toml:"name"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains ntfy delivery settings. An empty topic disables
// notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	OnSubmit              bool   `toml:"on_submit"`
	OnExpire              bool   `toml:"on_expire"`
}

// Config encapsulates all configuration values for postgate.
//
// Configuration sections by subsystem:
//   - Paths: queue database directory, log directory, and HTTP bind address
//   - Queue: default review timeout, sweep cadence, and retention
//   - Reviewer: interactive reviewer polling and the label recorded on decisions
//   - Notifications: ntfy topic and which queue events are pushed
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Queue         Queue         `toml:"queue"`
	Reviewer      Reviewer      `toml:"reviewer"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv(envAPIBind); ok {
		c.Paths.APIBind = strings.TrimSpace(value)
	}
	if value := strings.TrimSpace(os.Getenv(envDataDir)); value != "" {
		c.Paths.DataDir = value
	}
	if value, ok := os.LookupEnv(envNtfyTopic); ok {
		c.Notifications.NtfyTopic = strings.TrimSpace(value)
	}
	if value := strings.TrimSpace(os.Getenv(envLogLevel)); value != "" {
		c.Logging.Level = value
	}
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the location of the SQLite queue database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, queueDatabaseName)
}

// DefaultTimeout returns the review window applied when a submission does not override it.
func (c *Config) DefaultTimeout() time.Duration {
	return time.Duration(c.Queue.DefaultTimeoutSeconds) * time.Second
}

// SweepInterval returns the cadence of the expiry sweeper.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Queue.SweepIntervalSeconds) * time.Second
}

// PendingMaxAge returns the age after which pending items are deleted, or zero when disabled.
func (c *Config) PendingMaxAge() time.Duration {
	return time.Duration(c.Queue.PendingMaxAgeSeconds) * time.Second
}

// DecidedRetention returns how long decided items are kept, or zero when kept forever.
func (c *Config) DecidedRetention() time.Duration {
	return time.Duration(c.Queue.DecidedRetentionDays) * 24 * time.Hour
}

// NotificationTimeout returns the per-request ntfy timeout.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// ReviewerPollInterval returns how long the interactive reviewer idles on an empty queue.
func (c *Config) ReviewerPollInterval() time.Duration {
	return time.Duration(c.Reviewer.PollIntervalSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
