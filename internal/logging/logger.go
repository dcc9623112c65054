// Package logging wraps logrus for the paste pipeline.
//
// All output goes to stderr by default because stdout carries the stdio
// host protocol. Components obtain a scoped entry with For.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logrus instance.
var Logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Level = logrus.InfoLevel
	l.Formatter = &logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	}
	return l
}

// For returns an entry tagged with the given component name.
func For(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}

// SetOutput sets the logger output.
func SetOutput(out io.Writer) {
	Logger.SetOutput(out)
}

// SetLevel parses a level name ("debug", "info", "warn", "error").
// Unknown names leave the current level unchanged and return false.
func SetLevel(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return false
	}
	Logger.SetLevel(lvl)
	return true
}

// SetFormat switches between "text" and "json" output.
func SetFormat(format string) {
	switch strings.ToLower(format) {
	case "json":
		Logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		Logger.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	}
}
