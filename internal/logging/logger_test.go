package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" WARNING "))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("chatty"))
}

func TestNewLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: WARN, Console: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "target", "group:alice")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "target=group:alice")
}

func TestJSONFormatWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: INFO, JSONFormat: true, Console: &buf})
	require.NoError(t, err)

	logger.With("component", "training_orchestrator").Info("run complete", "trained", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "run complete", entry["msg"])
	assert.Equal(t, "training_orchestrator", entry["component"])
	assert.Equal(t, float64(3), entry["trained"])
}

func TestFileOutputAndRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "run.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0644))

	var console bytes.Buffer
	logger, err := NewLogger(Config{Level: INFO, OutputFile: path, MaxSize: 32, MaxBackups: 2, Console: &console})
	require.NoError(t, err)
	logger.Info("fresh")
	require.NoError(t, logger.Close())

	rotated, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Len(t, rotated, 64)

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(current), "fresh")
	assert.Contains(t, console.String(), "fresh")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(true, "")
	assert.Equal(t, DEBUG, cfg.Level)
	assert.True(t, cfg.AddSource)
	assert.Empty(t, cfg.OutputFile)

	assert.True(t, strings.HasPrefix(filepath.Base(TimestampedFile("logs")), "ownerscope_"))
}
