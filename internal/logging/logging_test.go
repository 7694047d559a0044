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
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewJSON_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewJSON("warn", &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", zap.String("sku", "ABC"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "ABC", entry["sku"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewConsole("info", &buf)
	require.NoError(t, err)

	log.Info("hello", zap.Int("n", 3))
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), `"n"`)
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "labelctl.log")
	log, closeFn, err := NewFile("info", path)
	require.NoError(t, err)

	log.Info("written")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written"`)
}
