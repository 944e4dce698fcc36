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
	cfg, err := LoadFiles(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.MerchantReloadInterval)
	assert.Equal(t, 10*time.Second, cfg.AITimeout)
	assert.Equal(t, BackendFile, cfg.LearnedStoreBackend)
	assert.Equal(t, 5, cfg.QueueWorkers)
	assert.False(t, cfg.AIEnabled)
}

func TestLoadFromEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	content := "PORT=9090\nMERCHANT_RELOAD_INTERVAL=30s\nAI_ENABLED=true\nLEARNED_STORE_BACKEND=sqlite\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	// godotenv does not override variables that are already set; t.Setenv
	// restores the previous state once the test ends.
	for _, k := range []string{"PORT", "MERCHANT_RELOAD_INTERVAL", "AI_ENABLED", "LEARNED_STORE_BACKEND"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := LoadFiles(envFile)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.MerchantReloadInterval)
	assert.True(t, cfg.AIEnabled)
	assert.Equal(t, BackendSQLite, cfg.LearnedStoreBackend)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "AI_TIMEOUT", "soon"},
		{"bad bool", "AI_ENABLED", "maybe"},
		{"bad int", "QUEUE_WORKERS", "five"},
		{"unknown backend", "LEARNED_STORE_BACKEND", "redis"},
		{"gcs without bucket", "LEARNED_STORE_BACKEND", "gcs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadFiles(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
