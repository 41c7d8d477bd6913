package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"SERVER_ADDR", "GIN_MODE", "API_BASE_URL", "MAX_UPLOAD_SIZE_MB", "HANDOFF_STORE",
	"REDIS_URL", "HANDOFF_TTL", "LOG_LEVEL", "CORS_ORIGINS", "STUB_ADDR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.GinMode)
	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, 10, cfg.MaxUploadSizeMB)
	assert.Equal(t, StoreMemory, cfg.HandoffStore)
	assert.Equal(t, 30*time.Minute, cfg.HandoffTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_URL", "classifier.internal:8000/")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "25")
	t.Setenv("HANDOFF_STORE", "Redis")
	t.Setenv("HANDOFF_TTL", "5m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://classifier.internal:8000", cfg.APIBaseURL)
	assert.Equal(t, 25, cfg.MaxUploadSizeMB)
	assert.Equal(t, StoreRedis, cfg.HandoffStore)
	assert.Equal(t, 5*time.Minute, cfg.HandoffTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key         string
		value       string
		description string
	}{
		{"MAX_UPLOAD_SIZE_MB", "ten", "non numeric size"},
		{"MAX_UPLOAD_SIZE_MB", "0", "zero size"},
		{"HANDOFF_TTL", "soon", "unparsable ttl"},
		{"HANDOFF_TTL", "-1m", "negative ttl"},
		{"HANDOFF_STORE", "memcached", "unknown store"},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadStub(t *testing.T) {
	clearEnv(t)
	t.Setenv("STUB_ADDR", ":9000")

	cfg, err := LoadStub()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ServerAddr)
	assert.Equal(t, 10, cfg.MaxUploadSizeMB)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("API_BASE_URL=http://from-dotenv:8000\n"), 0o600))

	// godotenv does not override variables that are already set
	require.NoError(t, os.Unsetenv("API_BASE_URL"))
	t.Cleanup(func() { os.Unsetenv("API_BASE_URL") })

	require.NoError(t, LoadDotEnv(path))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://from-dotenv:8000", cfg.APIBaseURL)

	assert.Error(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
