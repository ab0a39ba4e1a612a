// Package logging provides the structured logger used throughout the
// gateway. It keeps the call shape of a hand-rolled console logger
// (Info/Warn/Error/Debug/Success/Fatal/Section) while delegating formatting
// and level filtering to logrus, so every call site can attach structured
// fields (endpoint, sequence, opcode) instead of interpolating them into a
// message string.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry with the fixed method set the rest of the
// repo calls.
type Logger struct {
	entry *logrus.Entry
}

// New builds a Logger writing to stderr at the given level ("debug",
// "info", "warn", "error").
func New(level string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &Logger{entry: logrus.NewEntry(l)}
}

// Discard returns a Logger that drops everything, for tests and call sites
// that don't want to wire up real output.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return &Logger{entry: logrus.NewEntry(l)}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// With returns a derived Logger carrying the given structured fields on
// every subsequent call.
func (l *Logger) With(fields logrus.Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Success logs at info level with a success field, matching the teacher
// logger's distinct Success call used for lifecycle milestones.
func (l *Logger) Success(format string, args ...interface{}) {
	l.entry.WithField("result", "success").Infof(format, args...)
}

// Fatal logs at fatal level and terminates the process, matching the
// teacher logger's Fatal call.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

// Section logs a banner-style divider used at startup/shutdown boundaries.
func (l *Logger) Section(title string) {
	l.entry.Infof("=== %s ===", title)
}

// Banner prints the startup banner the teacher's entrypoint used, kept as a
// package-level function since it runs before any Logger is constructed.
func Banner(name, version string) {
	logrus.Infof("%s (version %s)", name, version)
}
