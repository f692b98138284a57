package config

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestNewTextLogger_RespectsLogLevel(t *testing.T) {
	levels := map[string][]string{
		"DEBUG": {"debug", "info", "warn"},
		"INFO":  {"info", "warn"},
		"WARN":  {"warn"},
	}

	for level, expected := range levels {
		t.Run(level, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", level)

			var buf bytes.Buffer
			logger := NewTextLogger(&buf)
			logger.Debug("debug message")
			logger.Info("info message")
			logger.Warn("warn message")

			for _, want := range expected {
				assert.Contains(t, buf.String(), want+" message")
			}
			assert.Equal(t, len(expected), bytes.Count(buf.Bytes(), []byte("\n")))
		})
	}
}

func TestNewTestLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := NewTestLogger(&buf, "ERROR")
	logger.Debug("debug message")
	logger.Error("error message")
	assert.NotContains(t, buf.String(), "debug message")
	assert.Contains(t, buf.String(), "error message")

	t.Setenv("LOG_LEVEL", "DEBUG")
	buf.Reset()
	NewTestLogger(&buf, "").Debug("from env")
	assert.Contains(t, buf.String(), "from env")
}

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, NewLogger(true))
	assert.NotNil(t, NewLogger(false))
	assert.NotNil(t, NewCLILogger())
}

func TestLoggerCarriesServiceName(t *testing.T) {
	var buf bytes.Buffer
	NewTestLogger(&buf, "info").Info("hello")
	assert.Contains(t, buf.String(), "service="+ServiceName)
}
