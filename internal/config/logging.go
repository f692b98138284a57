package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ServiceName is attached to every log record
const ServiceName = "macroplan"

// parseLogLevel converts a string log level to slog.Level; unknown values mean INFO
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLogLevel returns the log level from the LOG_LEVEL environment variable
func GetLogLevel() slog.Level {
	return parseLogLevel(os.Getenv("LOG_LEVEL"))
}

func newLogger(output io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	return slog.New(handler).With("service", ServiceName)
}

// NewLogger creates the server logger. HTTP mode logs JSON to stdout. Stdio mode logs
// text to stderr so stdout stays reserved for MCP frames.
func NewLogger(isStdioMode bool) *slog.Logger {
	if isStdioMode {
		return newLogger(os.Stderr, GetLogLevel(), false)
	}
	return newLogger(os.Stdout, GetLogLevel(), true)
}

// NewCLILogger creates a logger for one-shot CLI runs. Logs go to stderr so the
// plan printed on stdout can be piped.
func NewCLILogger() *slog.Logger {
	return NewTextLogger(os.Stderr)
}

// NewTextLogger creates a text logger at the configured level, used by --fetch-db
func NewTextLogger(output io.Writer) *slog.Logger {
	return newLogger(output, GetLogLevel(), false)
}

// NewTestLogger creates a text logger at the given level, or LOG_LEVEL when level is empty
func NewTestLogger(output io.Writer, level string) *slog.Logger {
	if level == "" {
		return newLogger(output, GetLogLevel(), false)
	}
	return newLogger(output, parseLogLevel(level), false)
}
