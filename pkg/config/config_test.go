package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("FLINT_TEST_STR", "custom")
	t.Setenv("FLINT_TEST_INT", "8")
	t.Setenv("FLINT_TEST_BAD_INT", "eight")
	t.Setenv("FLINT_TEST_BOOL", "1")
	t.Setenv("FLINT_TEST_DUR", "90s")

	assert.Equal(t, "custom", getEnv("FLINT_TEST_STR", "default"))
	assert.Equal(t, "default", getEnv("FLINT_TEST_UNSET", "default"))
	assert.Equal(t, 8, getEnvInt("FLINT_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("FLINT_TEST_BAD_INT", 1))
	assert.True(t, getEnvBool("FLINT_TEST_BOOL", false))
	assert.False(t, getEnvBool("FLINT_TEST_UNSET", false))
	assert.Equal(t, 90*time.Second, getEnvDuration("FLINT_TEST_DUR", 0))
}

func TestLoadSettings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, err := LoadSettings()
		require.NoError(t, err)
		assert.Equal(t, DefaultWorkers, s.Workers)
		assert.Equal(t, "flint.toml", s.ConfigPath)
		assert.Equal(t, time.Duration(0), s.JobTimeout)
		assert.False(t, s.NonInteractive)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("FLINT_PLUGINS_DIR", "/opt/flint/plugins")
		t.Setenv("FLINT_WORKERS", "4")
		t.Setenv("FLINT_NON_INTERACTIVE", "true")
		t.Setenv("FLINT_LOG_LEVEL", "DEBUG")
		t.Setenv("FLINT_JOB_TIMEOUT", "5m")

		s, err := LoadSettings()
		require.NoError(t, err)
		assert.Equal(t, "/opt/flint/plugins", s.PluginsDir)
		assert.Equal(t, 4, s.Workers)
		assert.True(t, s.NonInteractive)
		assert.Equal(t, "debug", s.LogLevel)
		assert.Equal(t, 5*time.Minute, s.JobTimeout)
	})

	t.Run("invalid workers", func(t *testing.T) {
		t.Setenv("FLINT_WORKERS", "0")
		_, err := LoadSettings()
		assert.ErrorContains(t, err, "workers must be positive")
	})
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"empty plugins dir", func(s *Settings) { s.PluginsDir = "" }, "plugins directory is required"},
		{"empty config path", func(s *Settings) { s.ConfigPath = "" }, "config path is required"},
		{"negative cache", func(s *Settings) { s.ScriptCacheSize = -1 }, "script cache size"},
		{"negative timeout", func(s *Settings) { s.JobTimeout = -time.Second }, "job timeout"},
		{"bad log level", func(s *Settings) { s.LogLevel = "loud" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
