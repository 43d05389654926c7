// Package observability wires structured logging and metrics for the
// publish pipeline.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat selects the slog handler used for pipeline output.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// LogOptions configures SetupLogging.
type LogOptions struct {
	Level     slog.Level
	Format    LogFormat
	Output    io.Writer // defaults to os.Stderr
	AddSource bool
}

// SetupLogging installs the default slog logger and returns it.
func SetupLogging(opts LogOptions) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource}

	var handler slog.Handler
	if opts.Format == LogFormatJSON {
		handler = slog.NewJSONHandler(out, hopts)
	} else {
		handler = slog.NewTextHandler(out, hopts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// BuildLogger returns a logger annotated with the build id for use across
// one pipeline run.
func BuildLogger(buildID string) *slog.Logger {
	return slog.Default().With(slog.String("build_id", buildID))
}
