package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8091, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout())
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout())

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
	assert.Equal(t, "stixbridge.bundles", cfg.NATS.Subject)
	assert.Equal(t, -1, cfg.NATS.MaxReconnects)
	assert.Equal(t, 2*time.Second, cfg.NATS.ReconnectWaitDuration())

	assert.False(t, cfg.OpenSearch.Enabled)
	assert.Equal(t, "https://localhost:9200", cfg.OpenSearch.URL)
	assert.Equal(t, "stixbridge", cfg.OpenSearch.Index)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
logging:
  level: debug
  format: text
nats:
  enabled: true
  subject: custom.bundles
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "custom.bundles", cfg.NATS.Subject)
	// untouched sections keep their defaults
	assert.Equal(t, "https://localhost:9200", cfg.OpenSearch.URL)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("STIXBRIDGE_SERVER_PORT", "9999")
	t.Setenv("STIXBRIDGE_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestValidateLoggingValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}
