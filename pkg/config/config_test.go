package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := LoadDefaults()
	assert.Equal(t, "./data", cfg.DataDir)
	assert.False(t, cfg.InMemory)
	assert.False(t, cfg.SyncWrites)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bifrost.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /var/lib/bifrost\nsync_writes: true\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/bifrost", cfg.DataDir)
	assert.True(t, cfg.SyncWrites)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unclosed"), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bifrost.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from/file\n"), 0o644))

	t.Setenv("BIFROST_DATA_DIR", "/from/env")
	t.Setenv("BIFROST_IN_MEMORY", "true")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.DataDir)
	assert.True(t, cfg.InMemory)
}

func TestEnvBadBoolIgnored(t *testing.T) {
	t.Setenv("BIFROST_IN_MEMORY", "maybe")
	cfg := LoadFromEnv()
	assert.False(t, cfg.InMemory)
}

func TestValidate(t *testing.T) {
	cfg := &Config{DataDir: "", InMemory: false}
	assert.Error(t, cfg.Validate())

	cfg.InMemory = true
	assert.NoError(t, cfg.Validate())
}
