package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, "127.0.0.1", cfg.Gateway.Host)
	assert.Equal(t, 8080, cfg.Gateway.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Discord.Token)
	assert.Empty(t, cfg.Telegram.Token)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"discord": {"token": "from-file"},
		"log": {"level": "debug"}
	}`), 0o600))

	t.Setenv("DTBRIDGE_DISCORD_TOKEN", "from-env")
	t.Setenv("DTBRIDGE_GATEWAY_PORT", "9090")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Discord.Token)
	assert.Equal(t, 9090, cfg.Gateway.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Telegram.Token = "tg-token"
	cfg.Storage.DataDir = "/var/lib/dtbridge"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tg-token", loaded.Telegram.Token)
	assert.Equal(t, "/var/lib/dtbridge", loaded.Storage.DataDir)
}

func TestStoragePathsDefaultIntoDataDir(t *testing.T) {
	s := StorageConfig{DataDir: "data"}
	assert.Equal(t, filepath.Join("data", "bridges.json"), s.RegistryFile())
	assert.Equal(t, filepath.Join("data", "message_map.db"), s.StoreFile())

	s.RegistryPath = "/etc/dtbridge/bridges.json"
	s.StorePath = "/var/db/map.db"
	assert.Equal(t, "/etc/dtbridge/bridges.json", s.RegistryFile())
	assert.Equal(t, "/var/db/map.db", s.StoreFile())
}
