package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"expense-wallet/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"WALLET_BASE_URL", "WALLET_DB_PATH", "DB_PATH", "WALLET_STORE_KEY", "WALLET_TIMEOUT", "WALLET_LOG_LEVEL", "WALLET_DOWNLOAD_DIR"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, api.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultDownloadDir, cfg.DownloadDir)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides variables that are set, so unset the cleared ones.
	for _, k := range []string{"WALLET_BASE_URL", "WALLET_TIMEOUT"} {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		os.Unsetenv("WALLET_BASE_URL")
		os.Unsetenv("WALLET_TIMEOUT")
	})

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("WALLET_BASE_URL=http://localhost:8080/\nWALLET_TIMEOUT=5s\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)

	ac := cfg.APIConfig()
	assert.Equal(t, 5*time.Second, ac.ReadTimeout)
	assert.True(t, ac.RetryOnConnectionFailure)
}

func TestLoadLegacyDBPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", "/tmp/legacy.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/legacy.db", cfg.DBPath)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("WALLET_TIMEOUT", "soon")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)

	t.Setenv("WALLET_TIMEOUT", "")
	t.Setenv("WALLET_LOG_LEVEL", "loud")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "info")

	log.Debug().Msg("hidden")
	log.Info().Str("path", "api/budgets/").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "path=api/budgets/")
}
