package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONWritesToFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "jartrack.log")

	logger, cleanup, err := newLogger(&stderr, "info", "json", path)
	require.NoError(t, err)
	logger.Info("jar marked used", "jar_id", 7)
	logger.Debug("hidden")
	cleanup()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(stderr.Bytes(), &rec))
	assert.Equal(t, "jar marked used", rec["msg"])
	assert.EqualValues(t, 7, rec["jar_id"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, stderr.String(), string(data))
}

func TestNewTextFormat(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stderr bytes.Buffer
	logger, cleanup, err := newLogger(&stderr, "debug", "text", "")
	require.NoError(t, err)
	defer cleanup()

	logger.Debug("batch created", "jars", 3)
	assert.Contains(t, stderr.String(), "msg=\"batch created\"")
	assert.Contains(t, stderr.String(), "jars=3")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}
