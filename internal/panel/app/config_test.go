package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PANEL_BASE_URL", "https://archive.example.com/api/")
	t.Setenv("PANEL_STATE_DIR", dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	require.Equal(t, "https://archive.example.com/api", cfg.BaseURL)
	require.Equal(t, 30*time.Second, cfg.Timeout)
	require.Equal(t, "bearer", cfg.CredentialMode)
	require.Equal(t, "current", cfg.APIVariant)
	require.Equal(t, filepath.Join(dir, "state.db"), cfg.TokenDatabaseFile)
	require.Equal(t, filepath.Join(dir, "master.key"), cfg.MasterKeyPath)
	require.Equal(t, 10*time.Second, cfg.PollInterval)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)
}

func TestLoadConfig_Sources(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "panel.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
base_url: https://from-file.example.com
api_variant: legacy
timeout: 5s
rate_limit: 2.5
log_level: info
master_key_file: ""
`), 0o600))

	t.Setenv("PANEL_STATE_DIR", dir)
	t.Setenv("PANEL_LOG_LEVEL", "debug")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("base-url", "", "")
	flags.String("credentials", "", "")
	require.NoError(t, flags.Parse([]string{"--credentials=cookie"}))

	cfg, err := LoadConfig(file, flags)
	require.NoError(t, err)

	require.Equal(t, "https://from-file.example.com", cfg.BaseURL, "unset flag must not shadow the file")
	require.Equal(t, "legacy", cfg.APIVariant)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.InDelta(t, 2.5, cfg.RateLimit, 0.0001)
	require.Equal(t, "debug", cfg.LogLevel, "environment beats the file")
	require.Equal(t, "cookie", cfg.CredentialMode, "flags beat everything")
	require.Empty(t, cfg.MasterKeyPath)
}

func TestLoadConfig_MasterKeyFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PANEL_BASE_URL", "https://archive.example.com")
	t.Setenv("PANEL_STATE_DIR", dir)
	t.Setenv(MasterKeyEnv, "env-material")

	t.Run("env key replaces the default key file", func(t *testing.T) {
		cfg, err := LoadConfig("", nil)
		require.NoError(t, err)
		require.Empty(t, cfg.MasterKeyPath)
	})

	t.Run("explicit key file still wins", func(t *testing.T) {
		t.Setenv("PANEL_MASTER_KEY_FILE", filepath.Join(dir, "custom.key"))

		cfg, err := LoadConfig("", nil)
		require.NoError(t, err)
		require.Equal(t, filepath.Join(dir, "custom.key"), cfg.MasterKeyPath)
	})
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("PANEL_STATE_DIR", t.TempDir())

	t.Run("missing base url", func(t *testing.T) {
		t.Setenv("PANEL_BASE_URL", "")
		_, err := LoadConfig("", nil)
		require.ErrorContains(t, err, "base_url")
	})

	t.Run("unknown credential mode", func(t *testing.T) {
		t.Setenv("PANEL_BASE_URL", "https://archive.example.com")
		t.Setenv("PANEL_CREDENTIALS", "basic")
		_, err := LoadConfig("", nil)
		require.ErrorContains(t, err, "credentials")
	})

	t.Run("missing explicit file", func(t *testing.T) {
		t.Setenv("PANEL_BASE_URL", "https://archive.example.com")
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
		require.Error(t, err)
	})
}
