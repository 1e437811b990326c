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
	t.Setenv("APP_ENV", "production") // skip .env lookup
	t.Setenv("CONFIG_PATH", "/nonexistent.yaml")

	cfg := Load()
	assert.Equal(t, ":4000", cfg.ServerAddr)
	assert.Equal(t, "jsonfile", cfg.StoreBackend)
	assert.Equal(t, "chat-data.json", cfg.DataFile)
	assert.Equal(t, "0 * * * *", cfg.RetentionCron)
	assert.Equal(t, 24*time.Hour, cfg.MessageTTL)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "*", cfg.CORSAllowedOrigins)
}

func TestLoadYAMLAndEnvPriority(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server_addr: \":5000\"\nstore_backend: memory\nmessage_ttl_hours: 48\n",
	), 0o644))
	t.Setenv("CONFIG_PATH", path)

	cfg := Load()
	assert.Equal(t, ":5000", cfg.ServerAddr)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 48*time.Hour, cfg.MessageTTL)

	// Env wins over YAML.
	t.Setenv("SERVER_ADDR", ":6000")
	t.Setenv("STORE_BACKEND", "postgres")
	cfg = Load()
	assert.Equal(t, ":6000", cfg.ServerAddr)
	assert.Equal(t, "postgres", cfg.StoreBackend)
}
