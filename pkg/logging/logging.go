// Package logging is the connection's structured logger: the same
// Debug/Info/Warn/Error/Success/Fatal surface this codebase has always
// exposed, now backed by logrus so embedders get fields, hooks, and
// formatters instead of a fixed ANSI palette.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var std = logrus.New()

func init() {
	std.SetOutput(os.Stderr)
	std.SetLevel(logrus.WarnLevel)
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
}

// SetLevel sets the minimum level the package-level logger emits at.
func SetLevel(level logrus.Level) { std.SetLevel(level) }

// SetOutput redirects the package-level logger's output.
func SetOutput(w interface{ Write([]byte) (int, error) }) { std.SetOutput(w) }

// Logger is the entry point a connection logs through. The zero value has
// no entry and is not usable; use New or Default.
type Logger struct {
	entry *logrus.Entry
}

// Default returns a Logger backed by the package-level logrus instance.
func Default() *Logger { return &Logger{entry: logrus.NewEntry(std)} }

// New wraps a caller-supplied logrus entry, for embedders who already run
// their own logrus configuration (fields, hooks, JSON formatter, etc.) and
// want the connection's logs routed through it.
func New(entry *logrus.Entry) *Logger {
	if entry == nil {
		return Default()
	}
	return &Logger{entry: entry}
}

// WithFields returns a Logger annotated with the given fields, e.g. the
// connection's peer address or lane index, carried on every subsequent line.
func (l *Logger) WithFields(fields logrus.Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

func (l *Logger) Debug(format string, args ...interface{})   { l.entry.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})    { l.entry.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})    { l.entry.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{})   { l.entry.Errorf(format, args...) }
func (l *Logger) Success(format string, args ...interface{}) {
	l.entry.WithField("status", "ok").Infof(format, args...)
}
func (l *Logger) Fatal(format string, args ...interface{})   { l.entry.Fatalf(format, args...) }
