package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "slack:\n  webhook_url: https://hooks.slack.com/services/T/B/X\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8000, cfg.Server.WebhookPort)
	require.Equal(t, 8081, cfg.Server.AdminPort)
	require.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	require.Equal(t, "main", cfg.Events.PrimaryBranch)
	require.Equal(t, "Asia/Kolkata", cfg.Events.DisplayTimezone)
	require.Equal(t, "file", cfg.Store.Backend)
	require.Equal(t, "event_log.json", cfg.Store.Path)
	require.Equal(t, 100, cfg.Store.Capacity)
	require.Equal(t, "linear", cfg.Retry.Backoff)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_SLACK_URL", "https://hooks.slack.com/services/T/B/expanded")
	path := writeConfig(t, "slack:\n  webhook_url: ${TEST_SLACK_URL}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://hooks.slack.com/services/T/B/expanded", cfg.Slack.WebhookURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "configuration file not found")
}

func TestValidateRejectsPortClash(t *testing.T) {
	path := writeConfig(t, "server:\n  webhook_port: 9000\n  admin_port: 9000\n")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must differ")
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, "store:\n  backend: redis\n")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported store backend")
}

func TestValidateRejectsBadDigestInterval(t *testing.T) {
	path := writeConfig(t, "digest:\n  interval: soon\n")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid digest interval")
}

func TestValidateFanoutRequiresURL(t *testing.T) {
	path := writeConfig(t, "fanout:\n  enabled: true\n")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fanout enabled")
}

func TestSQLiteBackendDefaultPath(t *testing.T) {
	path := writeConfig(t, "store:\n  backend: sqlite\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "events.db", cfg.Store.Path)
}

func TestInitAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false), "second init without force should fail")
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8000, cfg.Server.WebhookPort)
}

func TestNormalizers(t *testing.T) {
	require.Equal(t, LogLevelDebug, NormalizeLogLevel(" DEBUG "))
	require.Equal(t, LogLevelInfo, NormalizeLogLevel("bogus"))
	require.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))
	require.Equal(t, LogFormatText, NormalizeLogFormat(""))
	require.Equal(t, RetryBackoffExponential, NormalizeRetryBackoff("Exponential"))
	require.Equal(t, RetryBackoffMode(""), NormalizeRetryBackoff("quadratic"))
}
