// Package logging wraps charmbracelet/log with the file setup and context
// plumbing the client needs. Log output goes to a file so it never
// interleaves with the terminal UI.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the structured logger used across the module.
type Logger = log.Logger

var levelNames = map[string]log.Level{
	"debug": log.DebugLevel,
	"info":  log.InfoLevel,
	"warn":  log.WarnLevel,
	"error": log.ErrorLevel,
}

// ParseLevel maps a config value to a level; unknown values mean info.
func ParseLevel(value string) log.Level {
	value = strings.TrimSpace(strings.ToLower(value))
	if lvl, ok := levelNames[value]; ok {
		return lvl
	}
	return log.InfoLevel
}

// ValidLevel reports whether value names a level.
func ValidLevel(value string) bool {
	_, ok := levelNames[strings.TrimSpace(strings.ToLower(value))]
	return ok
}

// NewWriter returns a logger writing logfmt-ish lines to w.
func NewWriter(w io.Writer, level log.Level) *Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "tada",
	})
}

// New opens (appending) the log file at path.
// The returned closer releases the file.
func New(path string, level log.Level) (*Logger, io.Closer, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory for %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return NewWriter(file, level), file, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, log.ErrorLevel)
}

// WithContext stores the logger in ctx.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return log.WithContext(ctx, logger)
}

// FromContext returns the logger stored in ctx, or the package default.
func FromContext(ctx context.Context) *Logger {
	return log.FromContext(ctx)
}
