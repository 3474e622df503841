package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nestedConfig struct {
	Token string `env:"TEST_NESTED_TOKEN" yaml:"token"`
}

type testConfig struct {
	Name     string        `env:"TEST_NAME" yaml:"name" default:"relay"`
	Port     int           `env:"TEST_PORT" yaml:"port" default:"8080"`
	Timeout  time.Duration `env:"TEST_TIMEOUT" yaml:"timeout" default:"30s"`
	Ratio    float64       `env:"TEST_RATIO" yaml:"ratio" default:"0.7"`
	Debug    bool          `env:"TEST_DEBUG" yaml:"debug"`
	Origins  []string      `env:"TEST_ORIGINS" yaml:"origins" default:"http://a,http://b"`
	Required string        `env:"TEST_REQUIRED" yaml:"required" required:"true"`
	Nested   nestedConfig  `yaml:"nested,inline"`
}

type validatedConfig struct {
	Limit int `env:"TEST_LIMIT" yaml:"limit" default:"-1"`
}

func (c validatedConfig) Validate() error {
	if c.Limit < 0 {
		return errors.New("limit must be non-negative")
	}
	return nil
}

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("TEST_REQUIRED", "present")

	var cfg testConfig
	require.NoError(t, LoadFromEnv(&cfg))

	assert.Equal(t, "relay", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.InDelta(t, 0.7, cfg.Ratio, 1e-9)
	assert.False(t, cfg.Debug)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Origins)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("TEST_REQUIRED", "present")
	t.Setenv("TEST_NAME", "custom")
	t.Setenv("TEST_PORT", "9090")
	t.Setenv("TEST_TIMEOUT", "5s")
	t.Setenv("TEST_DEBUG", "true")
	t.Setenv("TEST_NESTED_TOKEN", "abc123")

	var cfg testConfig
	require.NoError(t, LoadFromEnv(&cfg))

	assert.Equal(t, "custom", cfg.Name)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "abc123", cfg.Nested.Token)
}

func TestLoadFromEnvRequiredMissing(t *testing.T) {
	var cfg testConfig
	err := LoadFromEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_REQUIRED")

	// Config is reset to zero on failure.
	assert.Zero(t, cfg.Port)
}

func TestLoadFromEnvInvalidValue(t *testing.T) {
	t.Setenv("TEST_REQUIRED", "present")
	t.Setenv("TEST_PORT", "not-a-number")

	var cfg testConfig
	err := LoadFromEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_PORT")
}

func TestLoadFromYAMLWithEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := "name: from-file\nport: 1234\nrequired: file-value\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o600))

	t.Setenv("TEST_NAME", "from-env")

	var cfg testConfig
	require.NoError(t, Load(&cfg, path, false))

	// Env wins over file, file wins over default.
	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 1234, cfg.Port)
	assert.Equal(t, "file-value", cfg.Required)
}

func TestLoadMissingFile(t *testing.T) {
	var cfg testConfig
	err := Load(&cfg, "/nonexistent/config.yaml", false)
	require.Error(t, err)

	// With allowFileErrors the loader falls back to env vars.
	t.Setenv("TEST_REQUIRED", "present")
	require.NoError(t, Load(&cfg, "/nonexistent/config.yaml", true))
	assert.Equal(t, "relay", cfg.Name)
}

func TestCustomValidatorRuns(t *testing.T) {
	var cfg validatedConfig
	err := LoadFromEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit must be non-negative")

	t.Setenv("TEST_LIMIT", "5")
	require.NoError(t, LoadFromEnv(&cfg))
	assert.Equal(t, 5, cfg.Limit)
}
