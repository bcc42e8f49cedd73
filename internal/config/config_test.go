package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 2, cfg.RunningLowThreshold)
	assert.Equal(t, 100, cfg.MaxBatchQuantity)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("JARTRACK_DB_PATH", "/custom/jars.db")
	t.Setenv("JARTRACK_LOG_LEVEL", "debug")
	t.Setenv("JARTRACK_RUNNING_LOW_THRESHOLD", "4")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/custom/jars.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.RunningLowThreshold)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jartrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: /srv/pantry.db\nmax_batch_quantity: 24\ndefault_location: cellar\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/pantry.db", cfg.DBPath)
	assert.Equal(t, 24, cfg.MaxBatchQuantity)
	assert.Equal(t, "cellar", cfg.DefaultLocation)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jartrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: /srv/pantry.db\n"), 0o600))
	t.Setenv("JARTRACK_DB_PATH", "/tmp/override.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
}

func TestLoadRejectsInvalidThreshold(t *testing.T) {
	t.Setenv("JARTRACK_RUNNING_LOW_THRESHOLD", "0")

	_, err := Load("")
	assert.Error(t, err)
}
