package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{
			name: "text format normal level",
			config: Config{
				Level:  LogLevelNormal,
				Format: "text",
			},
		},
		{
			name: "json format debug level",
			config: Config{
				Level:  LogLevelDebug,
				Format: "json",
			},
		},
		{
			name: "quiet level",
			config: Config{
				Level:  LogLevelQuiet,
				Format: "text",
			},
		},
		{
			name: "with caller reporting",
			config: Config{
				Level:      LogLevelVerbose,
				Format:     "text",
				ShowCaller: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.Output = &buf

			logger, err := NewLogger(tt.config)
			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.Equal(t, tt.config.Level, logger.GetLevel())
		})
	}
}

func TestNewLoggerWithLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "vault.log")
	var buf bytes.Buffer

	logger, err := NewLogger(Config{
		Level:   LogLevelNormal,
		Output:  &buf,
		Format:  "text",
		LogFile: logFile,
	})
	require.NoError(t, err)

	logger.Info("hello from test")

	assert.Contains(t, buf.String(), "hello from test")
	assert.FileExists(t, logFile)
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{
		Level:  LogLevelQuiet,
		Output: &buf,
		Format: "text",
	})
	require.NoError(t, err)

	logger.Info("should not appear")
	logger.Debug("should not appear either")
	assert.Empty(t, buf.String())

	logger.Error("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{
		Level:  LogLevelNormal,
		Output: &buf,
		Format: "text",
	})
	require.NoError(t, err)

	logger.Debug("hidden at normal")
	assert.Empty(t, buf.String())

	logger.SetLevel(LogLevelDebug)
	assert.Equal(t, LogLevelDebug, logger.GetLevel())

	logger.Debug("visible at debug")
	assert.Contains(t, buf.String(), "visible at debug")
}

func TestLogSnapshotCreated(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{
		Level:  LogLevelNormal,
		Output: &buf,
		Format: "json",
	})
	require.NoError(t, err)

	logger.LogSnapshotCreated("20250115_031500", "/backups/20250115_031500", 2, 4096, 1500*time.Millisecond)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "snapshot_create", entry["operation"])
	assert.Equal(t, "20250115_031500", entry["snapshot"])
	assert.Equal(t, float64(2), entry["members"])
}

func TestLogChecksumVerification(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{
		Level:  LogLevelNormal,
		Output: &buf,
		Format: "json",
	})
	require.NoError(t, err)

	logger.LogChecksumVerification("app.db", false)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "checksum_verify", entry["operation"])
	assert.Equal(t, false, entry["valid"])
	assert.Equal(t, "error", entry["level"])
}

func TestLogRestore(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{
		Level:  LogLevelNormal,
		Output: &buf,
		Format: "json",
	})
	require.NoError(t, err)

	logger.LogRestore("20250115_031500", "20250116_120000", time.Second, errors.New("integrity check failed"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "restore", entry["operation"])
	assert.Equal(t, "integrity check failed", entry["error"])
}

func TestLogOperationStart(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{
		Level:  LogLevelNormal,
		Output: &buf,
		Format: "json",
	})
	require.NoError(t, err)

	done := logger.LogOperationStart("prune", map[string]interface{}{"root": "/backups"})
	done(nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "prune", entry["operation"])
	assert.Equal(t, "completed", entry["status"])
	assert.Equal(t, true, entry["success"])
	assert.NotEmpty(t, entry["op_id"])
}

func TestNewDefaultLogger(t *testing.T) {
	logger := NewDefaultLogger()
	require.NotNil(t, logger)
	assert.Equal(t, LogLevelNormal, logger.GetLevel())
}
