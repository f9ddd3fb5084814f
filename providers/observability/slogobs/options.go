package slogobs

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/leofalp/aigoflow/core/config"
)

// Format selects the slog handler used by the Observer.
type Format string

const (
	// FormatText writes logfmt-style key=value lines.
	FormatText Format = "text"

	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

// LevelTrace sits below slog.LevelDebug and is only emitted when explicitly enabled.
const LevelTrace = slog.LevelDebug - 4

// Option is a functional option for configuring the Observer.
type Option func(*options)

type options struct {
	format Format
	level  slog.Level
	output io.Writer
	// logger, when set, bypasses format, level and output.
	logger *slog.Logger
}

// WithFormat sets the log output format.
func WithFormat(format Format) Option {
	return func(opts *options) {
		opts.format = format
	}
}

// WithLevel sets the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(opts *options) {
		opts.level = level
	}
}

// WithOutput sets the writer logs are written to.
func WithOutput(output io.Writer) Option {
	return func(opts *options) {
		opts.output = output
	}
}

// WithLogger uses an existing slog.Logger as is.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithConfig reads the format and level from AIGOFLOW_LOG_FORMAT and
// AIGOFLOW_LOG_LEVEL in values. Absent keys leave the current settings alone.
func WithConfig(values config.Values) Option {
	return func(opts *options) {
		if format, ok := values.Lookup(config.KeyLogFormat); ok {
			opts.format = ParseFormat(format)
		}
		if level, ok := values.Lookup(config.KeyLogLevel); ok {
			opts.level = ParseLevel(level)
		}
	}
}

// ParseFormat maps a format name to a Format, defaulting to FormatText.
func ParseFormat(name string) Format {
	if strings.EqualFold(strings.TrimSpace(name), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

// ParseLevel maps a level name (trace, debug, info, warn, error) to a
// slog.Level, defaulting to slog.LevelInfo.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace
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

func applyOptions(opts ...Option) *options {
	resolved := &options{
		format: FormatText,
		level:  slog.LevelInfo,
		output: os.Stderr,
	}
	for _, opt := range opts {
		opt(resolved)
	}
	return resolved
}

func (opts *options) buildLogger() *slog.Logger {
	if opts.logger != nil {
		return opts.logger
	}

	handlerOptions := &slog.HandlerOptions{Level: opts.level}
	if opts.format == FormatJSON {
		return slog.New(slog.NewJSONHandler(opts.output, handlerOptions))
	}
	return slog.New(slog.NewTextHandler(opts.output, handlerOptions))
}
