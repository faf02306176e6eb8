package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/tickerbot/internal/config"
)

func TestNewHandler(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		checkFunc func(t *testing.T, logger *slog.Logger, output *bytes.Buffer)
	}{
		{
			name: "json format with debug level",
			cfg:  config.LogConfig{Level: "debug", Format: "json"},
			checkFunc: func(t *testing.T, logger *slog.Logger, output *bytes.Buffer) {
				logger.Debug("persist: saved jobs", "count", 2)

				var entry map[string]any
				require.NoError(t, json.Unmarshal(output.Bytes(), &entry))
				assert.Equal(t, "DEBUG", entry["level"])
				assert.Equal(t, "persist: saved jobs", entry["msg"])
				assert.Equal(t, float64(2), entry["count"])
			},
		},
		{
			name: "json format filters below warn",
			cfg:  config.LogConfig{Level: "warn", Format: "json"},
			checkFunc: func(t *testing.T, logger *slog.Logger, output *bytes.Buffer) {
				logger.Info("info message")
				logger.Warn("warn message")

				lines := strings.Split(strings.TrimSpace(output.String()), "\n")
				assert.Len(t, lines, 1)
				assert.Contains(t, lines[0], "warn message")
			},
		},
		{
			name: "console format",
			cfg:  config.LogConfig{Level: "info", Format: "console"},
			checkFunc: func(t *testing.T, logger *slog.Logger, output *bytes.Buffer) {
				logger.Info("console test")

				// tint abbreviates levels
				assert.Contains(t, output.String(), "INF")
				assert.Contains(t, output.String(), "console test")
				assert.NotContains(t, output.String(), "\x1b[", "buffers are not terminals")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &bytes.Buffer{}
			h, err := NewHandler(output, tt.cfg)
			require.NoError(t, err)
			tt.checkFunc(t, slog.New(h), output)
		})
	}
}

func TestNewHandler_Invalid(t *testing.T) {
	_, err := NewHandler(&bytes.Buffer{}, config.LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
	_, err = NewHandler(&bytes.Buffer{}, config.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := ParseLevel(tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseLevel_AcceptsEveryConfigLevel(t *testing.T) {
	for _, level := range config.LogLevels {
		for _, name := range []string{level, strings.ToUpper(level)} {
			_, err := ParseLevel(name)
			assert.NoError(t, err, name)

			cfg := config.DefaultConfig()
			cfg.Telegram.Token = "t"
			cfg.Log.Level = name
			assert.NoError(t, cfg.Validate(), name)
		}
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tickerbot.log")
	logger, closer, err := New(config.LogConfig{Level: "info", Format: "json", Output: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info("bot: started polling")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bot: started polling")
}
