package log

import (
	"github.com/kataras/golog"
)

var gologLevels = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelNone:  "disable",
}

// GologLogger adapts a kataras/golog logger to the Logger interface.
// Level filtering happens here as well as in the backend, so a shared
// golog instance can sit at a looser level than the wrapper.
type GologLogger struct {
	logger *golog.Logger
	level  Level
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger wraps an existing golog.Logger at LevelInfo.
func NewGologLogger(logger *golog.Logger) *GologLogger {
	return &GologLogger{logger: logger, level: LevelInfo}
}

func (l *GologLogger) Debug(format string, v ...any) {
	if l.level <= LevelDebug {
		l.logger.Debugf(format, v...)
	}
}

func (l *GologLogger) Info(format string, v ...any) {
	if l.level <= LevelInfo {
		l.logger.Infof(format, v...)
	}
}

func (l *GologLogger) Warn(format string, v ...any) {
	if l.level <= LevelWarn {
		l.logger.Warnf(format, v...)
	}
}

func (l *GologLogger) Error(format string, v ...any) {
	if l.level <= LevelError {
		l.logger.Errorf(format, v...)
	}
}

// SetLevel adjusts both the wrapper and the golog backend.
func (l *GologLogger) SetLevel(level Level) {
	l.level = level
	if name, ok := gologLevels[level]; ok {
		l.logger.SetLevel(name)
	}
}

// GetLevel returns the wrapper's current level.
func (l *GologLogger) GetLevel() Level {
	return l.level
}
