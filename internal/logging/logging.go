// Package logging provides a small leveled logger for the bridge's real-time
// and supervisory code paths.
package logging

import (
	"log"
	"os"
)

// Level selects verbosity, mirroring the original debug_print(level, ...)
// convention: 0 is always printed, higher levels are progressively chattier.
type Level int

const (
	LevelError Level = 0
	LevelInfo  Level = 1
	LevelDebug Level = 2
	LevelTrace Level = 3
)

// Logger wraps a stdlib *log.Logger with a verbosity gate.
type Logger struct {
	level Level
	std   *log.Logger
}

// New creates a Logger writing to stderr at the given verbosity.
func New(level Level) *Logger {
	return &Logger{
		level: level,
		std:   log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
	}
}

// Errorf always logs, regardless of level.
func (l *Logger) Errorf(format string, args ...any) {
	l.std.Printf("ERROR: "+format, args...)
}

// Printf logs at the given level, dropping the message if the logger's
// configured level is lower.
func (l *Logger) Printf(level Level, format string, args ...any) {
	if l == nil || level > l.level {
		return
	}
	l.std.Printf(format, args...)
}

// Level reports the logger's configured verbosity.
func (l *Logger) Level() Level {
	if l == nil {
		return LevelError
	}
	return l.level
}
