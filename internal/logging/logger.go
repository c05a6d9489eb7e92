// Package logging provides the process-wide diagnostic logger.
//
// Logs are discarded until Configure is called, so library callers that
// never configure logging see no output on stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	mu     sync.RWMutex
)

func init() {
	logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Level represents a logging level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format selects the log line encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseLevel parses a level name. "warning" is accepted for warn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("invalid log level '%s' (must be debug, info, warn, or error)", s)
	}
}

// ParseFormat parses a log format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid log format '%s' (must be text or json)", s)
	}
}

func (l Level) slogLevel() slog.Level {
	switch strings.ToLower(string(l)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Configure replaces the global logger. A nil writer means stderr.
func Configure(level Level, format Format, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level.slogLevel()}

	var h slog.Handler
	if strings.EqualFold(string(format), string(FormatJSON)) {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(h)
}

// Disable discards all log output.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Logger returns the current global logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}
