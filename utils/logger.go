package utils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var (
	InfoLogger  = newLogger(os.Stdout, logrus.InfoLevel)
	ErrorLogger = newLogger(os.Stderr, logrus.ErrorLevel)
)

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// InitLogger configures both loggers. level applies to InfoLogger; the error
// logger never goes below warn. format is "text" or "json".
func InitLogger(level, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	var formatter logrus.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if format == "json" {
		formatter = &logrus.JSONFormatter{}
	}

	InfoLogger.SetOutput(os.Stdout)
	InfoLogger.SetFormatter(formatter)
	InfoLogger.SetLevel(lvl)

	ErrorLogger.SetOutput(os.Stderr)
	ErrorLogger.SetFormatter(formatter)
	ErrorLogger.SetLevel(logrus.WarnLevel)

	if lvl < logrus.WarnLevel {
		ErrorLogger.SetLevel(lvl)
	}
}

// SilenceLoggers discards all log output. Used by tests.
func SilenceLoggers() {
	InfoLogger.SetOutput(io.Discard)
	ErrorLogger.SetOutput(io.Discard)
}
