package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents the severity level for logging.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Logger provides structured logging with level-based filtering.
type Logger interface {
	Debug(v ...any)
	Debugf(format string, a ...any)
	Info(v ...any)
	Infof(format string, a ...any)
	Warn(v ...any)
	Warnf(format string, a ...any)
	Error(v ...any)
	Errorf(format string, a ...any)
	With(args ...any) Logger
}

type slogLogger struct {
	logger   *slog.Logger
	logLevel LogLevel
}

// New creates a logger with the specified level writing to stdout.
func New(logLevelStr string) Logger {
	return NewWithWriter(logLevelStr, os.Stdout)
}

// NewWithWriter creates a logger with the specified level writing to w.
// Accepts: "debug", "dbg", "info", "inf", "warn", "wrn", "error", "err" (case-insensitive).
// Defaults to InfoLevel if level string is unrecognized.
// Output format is JSON if LOG_FORMAT=json, otherwise human-readable text.
func NewWithWriter(logLevelStr string, w io.Writer) Logger {
	level := parseLevel(logLevelStr)
	opts := &slog.HandlerOptions{Level: toSlogLevel(level)}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &slogLogger{
		logger:   slog.New(handler),
		logLevel: level,
	}
}

func (l *slogLogger) Debug(v ...any) {
	if l.logLevel <= DebugLevel {
		l.logger.Debug(fmt.Sprint(v...))
	}
}

func (l *slogLogger) Debugf(format string, a ...any) {
	if l.logLevel <= DebugLevel {
		l.logger.Debug(fmt.Sprintf(format, a...))
	}
}

func (l *slogLogger) Info(v ...any) {
	if l.logLevel <= InfoLevel {
		l.logger.Info(fmt.Sprint(v...))
	}
}

func (l *slogLogger) Infof(format string, a ...any) {
	if l.logLevel <= InfoLevel {
		l.logger.Info(fmt.Sprintf(format, a...))
	}
}

func (l *slogLogger) Warn(v ...any) {
	if l.logLevel <= WarnLevel {
		l.logger.Warn(fmt.Sprint(v...))
	}
}

func (l *slogLogger) Warnf(format string, a ...any) {
	if l.logLevel <= WarnLevel {
		l.logger.Warn(fmt.Sprintf(format, a...))
	}
}

func (l *slogLogger) Error(v ...any) {
	if l.logLevel <= ErrorLevel {
		l.logger.Error(fmt.Sprint(v...))
	}
}

func (l *slogLogger) Errorf(format string, a ...any) {
	if l.logLevel <= ErrorLevel {
		l.logger.Error(fmt.Sprintf(format, a...))
	}
}

// With returns a new logger with additional contextual fields.
// The returned logger preserves the current log level.
func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{
		logger:   l.logger.With(args...),
		logLevel: l.logLevel,
	}
}

type noopLogger struct{}

func (noopLogger) Debug(v ...any)                 {}
func (noopLogger) Debugf(format string, a ...any) {}
func (noopLogger) Info(v ...any)                  {}
func (noopLogger) Infof(format string, a ...any)  {}
func (noopLogger) Warn(v ...any)                  {}
func (noopLogger) Warnf(format string, a ...any)  {}
func (noopLogger) Error(v ...any)                 {}
func (noopLogger) Errorf(format string, a ...any) {}
func (noopLogger) With(args ...any) Logger        { return noopLogger{} }

// NewNoopLogger creates a no-op logger that discards all log output.
func NewNoopLogger() Logger {
	return noopLogger{}
}

func parseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug", "dbg":
		return DebugLevel
	case "info", "inf":
		return InfoLevel
	case "warn", "wrn", "warning":
		return WarnLevel
	case "error", "err":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
