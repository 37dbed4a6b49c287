// Package log defines the small leveled logging surface the rest of the
// module programs against, with a stderr-backed default and a golog
// adapter for the CLI.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level is a logging severity threshold. Messages below the configured
// level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelNone disables all output.
	LevelNone
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelNone:  "NONE",
}

// String returns the level's canonical upper-case name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", l)
}

// ParseLevel maps a case-insensitive level name ("debug", "info", "warn",
// "error", "none") to its Level. Unknown names fall back to LevelInfo
// with an error.
func ParseLevel(name string) (Level, error) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for level, n := range levelNames {
		if n == want {
			return level, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// Logger is the printf-style leveled logger the pipeline components
// accept.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

// DefaultLogger writes tagged lines through the standard library logger.
type DefaultLogger struct {
	logger *log.Logger
	level  Level
}

// NewDefaultLogger returns a logger writing to stderr at the given level.
func NewDefaultLogger(level Level) *DefaultLogger {
	return NewCustomLogger(os.Stderr, level)
}

// NewCustomLogger returns a logger writing to out at the given level.
func NewCustomLogger(out io.Writer, level Level) *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(out, "[foursight] ", log.LstdFlags),
		level:  level,
	}
}

func (l *DefaultLogger) logf(at Level, format string, v ...any) {
	if l.level > at {
		return
	}
	l.logger.Printf("["+at.String()+"] "+format, v...)
}

func (l *DefaultLogger) Debug(format string, v ...any) { l.logf(LevelDebug, format, v...) }
func (l *DefaultLogger) Info(format string, v ...any)  { l.logf(LevelInfo, format, v...) }
func (l *DefaultLogger) Warn(format string, v ...any)  { l.logf(LevelWarn, format, v...) }
func (l *DefaultLogger) Error(format string, v ...any) { l.logf(LevelError, format, v...) }

// NoOpLogger discards everything. Handy in tests.
type NoOpLogger struct{}

func (*NoOpLogger) Debug(string, ...any) {}
func (*NoOpLogger) Info(string, ...any)  {}
func (*NoOpLogger) Warn(string, ...any)  {}
func (*NoOpLogger) Error(string, ...any) {}

var defaultLogger Logger = NewDefaultLogger(LevelInfo)

// SetDefaultLogger replaces the package-level logger.
func SetDefaultLogger(logger Logger) {
	defaultLogger = logger
}

// GetDefaultLogger returns the package-level logger.
func GetDefaultLogger() Logger {
	return defaultLogger
}

// SetLevel installs a fresh stderr logger at the given level as the
// package-level logger.
func SetLevel(level Level) {
	defaultLogger = NewDefaultLogger(level)
}

// Debug logs through the package-level logger.
func Debug(format string, v ...any) { defaultLogger.Debug(format, v...) }

// Info logs through the package-level logger.
func Info(format string, v ...any) { defaultLogger.Info(format, v...) }

// Warn logs through the package-level logger.
func Warn(format string, v ...any) { defaultLogger.Warn(format, v...) }

// Error logs through the package-level logger.
func Error(format string, v ...any) { defaultLogger.Error(format, v...) }
