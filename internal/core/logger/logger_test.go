package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"campus-feedback/internal/core/config"
)

func TestJSONLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := buildLogger(Options{Level: "warn", JSON: true, Output: zapcore.AddSync(&buf)})
	defer cleanup()

	l.Info("hidden")
	l.Warn("batch admitted", zap.Int("count", 5))
	require.NoError(t, l.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "batch admitted", entry["msg"])
	require.EqualValues(t, 5, entry["count"])
	require.Contains(t, entry, "ts")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := buildLogger(Options{Level: "loud", JSON: true, Output: zapcore.AddSync(&buf)})
	defer cleanup()

	l.Debug("nope")
	l.Info("yes")
	require.Contains(t, buf.String(), `"msg":"yes"`)
	require.NotContains(t, buf.String(), "nope")
}

func TestFromConfigWritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	l, cleanup := FromConfig(config.Log{
		Level: "info",
		JSON:  true,
		File:  config.LogFile{Filename: file, MaxSizeMB: 1},
	})
	l.Info("to file")
	cleanup()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(b), "to file")
}

func TestToWriter(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := buildLogger(Options{Level: "info", JSON: true, Output: zapcore.AddSync(&buf)})
	defer cleanup()

	w := ToWriter(l, zapcore.InfoLevel)
	_, err := w.Write([]byte("[GIN-debug] route registered\n"))
	require.NoError(t, err)
	require.Contains(t, buf.String(), "[GIN-debug] route registered")
}
