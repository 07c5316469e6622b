// Package logger provides a thin wrapper around slog for structured logging.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// L returns the global logger instance.
func L() *slog.Logger {
	return current.Load()
}

// Set replaces the global logger and returns the previous one.
func Set(l *slog.Logger) *slog.Logger {
	return current.Swap(l)
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Configure installs a text handler writing to w at level.
func Configure(w io.Writer, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	Set(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// Error logs an error message.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}
