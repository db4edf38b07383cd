// Package alog is Aurora's ambient structured logger: a thin wrapper
// over logrus (the teacher's own code reaches for the stdlib "log"
// package, but the retrieved corpus carries github.com/sirupsen/logrus
// for exactly this concern, so this is where it gets wired in) giving
// every package a shared, leveled, field-aware logger instead of ad hoc
// log.Printf calls.
package alog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the package-wide logrus instance. Fields() is the
// idiomatic way to log with structured context; callers should avoid
// formatting values into the message string itself.
var Logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Fields is a shorthand for building structured log context, e.g.
// alog.Logger.WithFields(alog.Fields{"worker": id}).Warn(...).
type Fields = logrus.Fields

// SetLevel adjusts the package-wide log level, e.g. from a config flag.
func SetLevel(level logrus.Level) { Logger.SetLevel(level) }
