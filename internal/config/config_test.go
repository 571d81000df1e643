package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": "9090"},
		"approval": {"timeout": "2m"},
		"fetch": {"timeout_ms": 500},
		"log_level": "debug"
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "10m", cfg.Server.WriteTimeout)
	assert.Equal(t, 500, cfg.Fetch.TimeoutMS)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NotEmpty(t, cfg.Jobs.Predefined)

	timeout, err := cfg.ApprovalTimeout()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, timeout)
}

func TestLoadRejectsShortWriteTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"write_timeout": "30s"},
		"approval": {"timeout": "5m"}
	}`), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "must exceed approval timeout")
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("APPROVAL_TIMEOUT", "90s")
	t.Setenv("FETCH_TIMEOUT_MS", "2500")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.example/x")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "10m", cfg.Server.WriteTimeout)
	assert.Equal(t, "90s", cfg.Approval.Timeout)
	assert.Equal(t, 2500, cfg.Fetch.TimeoutMS)
	assert.Equal(t, "https://hooks.slack.example/x", cfg.Slack.WebhookURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "config/networks.yaml", cfg.Networks.SeedPath)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT_MS", "not-a-number")

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Approval.Timeout = "soon"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.ReadTimeout = "-1s"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Fetch.TimeoutMS = 0
	assert.Error(t, cfg.Validate())
}

func TestHealthInterval(t *testing.T) {
	cfg := DefaultConfig()
	interval, err := cfg.HealthInterval()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, interval)

	cfg.Networks.HealthInterval = "off"
	interval, err = cfg.HealthInterval()
	require.NoError(t, err)
	assert.Zero(t, interval)

	for _, zero := range []string{"", "0", "0s", "0m"} {
		cfg.Networks.HealthInterval = zero
		interval, err = cfg.HealthInterval()
		require.NoError(t, err, zero)
		assert.Zero(t, interval, zero)
	}

	cfg.Networks.HealthInterval = "90s"
	interval, err = cfg.HealthInterval()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, interval)

	cfg.Networks.HealthInterval = "-1m"
	_, err = cfg.HealthInterval()
	assert.Error(t, err)

	cfg.Networks.HealthInterval = "often"
	assert.Error(t, cfg.Validate())
}

func TestLoadReadsDotEnvWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("PORT=6060\nAPPROVAL_TIMEOUT=45s\n"), 0o644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// Registered so the variables godotenv sets are restored afterwards.
	t.Setenv("PORT", "")
	t.Setenv("APPROVAL_TIMEOUT", "")
	os.Unsetenv("PORT")
	os.Unsetenv("APPROVAL_TIMEOUT")

	cfg, err := Load(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "6060", cfg.Server.Port)
	assert.Equal(t, "45s", cfg.Approval.Timeout)
}
