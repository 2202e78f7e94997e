// Package log provides structured logging for the ingestion pipeline.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the log output format.
type Format string

// Format values.
const (
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
)

// New creates a slog.Logger writing to stdout in the given format and level.
func New(format Format, level string) *slog.Logger {
	return NewWithWriter(os.Stdout, format, level)
}

// NewWithWriter creates a slog.Logger writing to w.
func NewWithWriter(w io.Writer, format Format, level string) *slog.Logger {
	lvl := parseLevel(level)

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	default:
		handler = newTerminalHandler(w, &slog.HandlerOptions{Level: lvl})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
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

// WithRun returns a logger carrying the run ID attribute. Every pipeline
// stage logs through a child of this logger, so there is no process-wide
// mutable logging state.
func WithRun(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}

// WithBatch returns a logger carrying file and batch attributes.
func WithBatch(logger *slog.Logger, file string, batch int) *slog.Logger {
	return logger.With("file", file, "batch", batch)
}
