// Package logging builds the slog logger used across fswatch.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vistta-org/fs/internal/config"
)

// Setup returns a logger writing to stderr as configured by cfg.
func Setup(cfg config.Logger) *slog.Logger {
	return New(os.Stderr, cfg)
}

// New returns a logger writing to w.
func New(w io.Writer, cfg config.Logger) *slog.Logger {
	var formatter log.Formatter
	switch cfg.Format {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		formatter = log.TextFormatter
	}

	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "fswatch",
		Formatter:       formatter,
		Level:           ParseLevel(cfg.Level),
	})
	return slog.New(handler)
}

// ParseLevel maps a level name to a log level. Unknown names mean info.
func ParseLevel(name string) log.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
