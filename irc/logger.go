package irc

import (
	"fmt"
	"log"
	"os"
)

// Level is a logging threshold, ordered from most to least verbose.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// ParseLevel maps the option strings from spec.md §6 (logging.level,
// logging.messages_level) onto a Level. Unknown strings default to Info.
func ParseLevel(s string) Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return "info"
	}
}

// Logger is a small leveled wrapper around the standard library's log
// package. Calls below the configured threshold are dropped cheaply
// without formatting their arguments.
type Logger struct {
	level  Level
	target *log.Logger
}

// NewLogger creates a Logger writing to stderr at LevelInfo.
func NewLogger() *Logger {
	return &Logger{
		level:  LevelInfo,
		target: log.New(os.Stderr, "", log.LstdFlags),
	}
}

// SetLevel changes the logging threshold.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

func (l *Logger) log(level Level, format string, args ...any) {
	if l == nil || l.target == nil || level < l.level {
		return
	}
	l.target.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

func (l *Logger) Trace(format string, args ...any) { l.log(LevelTrace, format, args...) }
func (l *Logger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(LevelError, format, args...) }
func (l *Logger) Fatal(format string, args ...any) { l.log(LevelFatal, format, args...) }
