package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/flint/pkg/script"
)

// DefaultWorkers is the default size of the job worker pool
const DefaultWorkers = 16

// Settings holds process configuration for one flint invocation
type Settings struct {
	// Paths
	PluginsDir  string
	ConfigPath  string
	OutputDir   string
	ReportsDir  string
	LogFile     string
	MetricsFile string // empty disables the metrics textfile

	// Logging
	LogLevel string

	// Execution
	Workers         int
	NonInteractive  bool
	ScriptCacheSize int
	JobTimeout      time.Duration // zero means no deadline
}

// DefaultSettings returns settings with all defaults applied
func DefaultSettings() *Settings {
	return &Settings{
		PluginsDir:      DefaultPluginsDir(),
		ConfigPath:      "flint.toml",
		OutputDir:       ".",
		ReportsDir:      filepath.Join(".flint", "reports"),
		LogFile:         filepath.Join(".flint", "logs.txt"),
		LogLevel:        "info",
		Workers:         DefaultWorkers,
		ScriptCacheSize: script.DefaultCacheSize,
	}
}

// LoadSettings loads settings from environment variables
func LoadSettings() (*Settings, error) {
	d := DefaultSettings()

	s := &Settings{
		PluginsDir:      getEnv("FLINT_PLUGINS_DIR", d.PluginsDir),
		ConfigPath:      getEnv("FLINT_CONFIG", d.ConfigPath),
		OutputDir:       getEnv("FLINT_OUTPUT_DIR", d.OutputDir),
		ReportsDir:      getEnv("FLINT_REPORTS_DIR", d.ReportsDir),
		LogFile:         getEnv("FLINT_LOG_FILE", d.LogFile),
		MetricsFile:     getEnv("FLINT_METRICS_FILE", d.MetricsFile),
		LogLevel:        strings.ToLower(getEnv("FLINT_LOG_LEVEL", d.LogLevel)),
		Workers:         getEnvInt("FLINT_WORKERS", d.Workers),
		NonInteractive:  getEnvBool("FLINT_NON_INTERACTIVE", d.NonInteractive),
		ScriptCacheSize: getEnvInt("FLINT_SCRIPT_CACHE_SIZE", d.ScriptCacheSize),
		JobTimeout:      getEnvDuration("FLINT_JOB_TIMEOUT", d.JobTimeout),
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return s, nil
}

// Validate checks if the settings are usable
func (s *Settings) Validate() error {
	if s.PluginsDir == "" {
		return fmt.Errorf("plugins directory is required")
	}
	if s.ConfigPath == "" {
		return fmt.Errorf("config path is required")
	}
	if s.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if s.ReportsDir == "" {
		return fmt.Errorf("reports directory is required")
	}
	if s.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", s.Workers)
	}
	if s.ScriptCacheSize < 0 {
		return fmt.Errorf("script cache size must not be negative, got %d", s.ScriptCacheSize)
	}
	if s.JobTimeout < 0 {
		return fmt.Errorf("job timeout must not be negative, got %s", s.JobTimeout)
	}

	switch s.LogLevel {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", s.LogLevel)
	}

	return nil
}

// DefaultPluginsDir returns the per-user plugin install directory
func DefaultPluginsDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./flint-plugins"
	}
	return filepath.Join(homeDir, ".flint", "plugins")
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
