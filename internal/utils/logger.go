// internal/utils/logger.go

package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger defines the interface for logging throughout the application.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLogLevel converts a config string into a LogLevel. Unknown values map to InfoLevel.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	Level   LogLevel
	Format  string // "console" or "json"
	Output  io.Writer
	Service string
}

// ZeroLogger adapts a zerolog.Logger to the Logger interface.
type ZeroLogger struct {
	zl zerolog.Logger
}

// NewLogger creates a zerolog backed logger.
func NewLogger(opts LoggerOptions) Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
	}
	ctx := zerolog.New(out).Level(opts.Level.zerolog()).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	return &ZeroLogger{zl: ctx.Logger()}
}

// NewLoggerWithLevel creates a console logger on stderr with the specified log level.
func NewLoggerWithLevel(level LogLevel) Logger {
	return NewLogger(LoggerOptions{Level: level})
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return &ZeroLogger{zl: zerolog.Nop()}
}

func (l *ZeroLogger) Debug(msg string) { l.zl.Debug().Msg(msg) }

func (l *ZeroLogger) Debugf(format string, args ...interface{}) {
	l.zl.Debug().Msg(fmt.Sprintf(format, args...))
}

func (l *ZeroLogger) Info(msg string) { l.zl.Info().Msg(msg) }

func (l *ZeroLogger) Infof(format string, args ...interface{}) {
	l.zl.Info().Msg(fmt.Sprintf(format, args...))
}

func (l *ZeroLogger) Warn(msg string) { l.zl.Warn().Msg(msg) }

func (l *ZeroLogger) Warnf(format string, args ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprintf(format, args...))
}

func (l *ZeroLogger) Error(msg string) { l.zl.Error().Msg(msg) }

func (l *ZeroLogger) Errorf(format string, args ...interface{}) {
	l.zl.Error().Msg(fmt.Sprintf(format, args...))
}

func (l *ZeroLogger) WithField(key string, value interface{}) Logger {
	return &ZeroLogger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *ZeroLogger) WithFields(fields map[string]interface{}) Logger {
	return &ZeroLogger{zl: l.zl.With().Fields(fields).Logger()}
}
