// File: internal/observability/logger_test.go
package observability

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

	"github.com/xkilldash9x/applypilot-cli/internal/config"
)

// the logger is a global singleton, so every test must reset it first.

func TestInitializeConsoleLogger(t *testing.T) {
	ResetForTest()
	var buf bytes.Buffer

	cfg := config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "test-service",
		Colors:      config.ColorConfig{Info: "green"},
	}
	Initialize(cfg, zapcore.AddSync(&buf))

	logger := GetLogger()
	require.NotNil(t, logger)
	logger.Info("hello from the test")
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.Contains(t, out, "hello from the test")
	assert.Contains(t, out, "test-service")
	// Colorized level marker for info.
	assert.Contains(t, out, colorGreen)
}

func TestInitializeJSONFileLogger(t *testing.T) {
	ResetForTest()
	logFile := filepath.Join(t.TempDir(), "out.log")

	cfg := config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "test-service",
		LogFile:     logFile,
		MaxSize:     1,
	}
	var buf bytes.Buffer
	Initialize(cfg, zapcore.AddSync(&buf))

	GetLogger().Info("structured entry", zap.String("question", "first name"))
	Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]any
	line := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)[0]
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "structured entry", entry["msg"])
	assert.Equal(t, "first name", entry["question"])
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	// Must not return nil even when Initialize was never called.
	assert.NotNil(t, GetLogger())
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "nonsense", Format: "json", ServiceName: "t"}, zapcore.AddSync(&buf))

	logger := GetLogger()
	logger.Debug("should be filtered")
	logger.Info("should appear")
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should appear")
}
