package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.WarnLevel},
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New("bootserial", tt.level)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("bootserial", "loud")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestNewConfigWritesToStderr(t *testing.T) {
	cfg := NewConfig(zapcore.InfoLevel)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")

	logger, err := NewFile("monitor", "info", path)
	require.NoError(t, err)
	logger.Info("port open")
	logger.Debug("not written")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INFO\tmonitor\tport open")
	assert.NotContains(t, string(data), "not written")
	assert.NotContains(t, string(data), "\x1b[")
}

func TestNewFileInvalidLevel(t *testing.T) {
	_, err := NewFile("monitor", "loud", filepath.Join(t.TempDir(), "x.log"))
	assert.ErrorContains(t, err, "invalid log level")
}
