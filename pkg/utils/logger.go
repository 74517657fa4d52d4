package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// logTimestamp is the timestamp layout shared by both output formats
const logTimestamp = "2006-01-02T15:04:05.000Z07:00"

// Logger is the process-wide logger. Components derive entries from it with
// WithField("component", ...).
var Logger *logrus.Logger

// InitLogger configures the global logger. Format is "json" or "text";
// output "file" writes to the given path, anything else goes to stdout.
func InitLogger(level, format, output, file string) error {
	logger := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(parsed)

	switch format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: logTimestamp,
		})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: logTimestamp})
	}

	if output == "file" && file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		logger.SetOutput(f)
	} else {
		logger.SetOutput(os.Stdout)
	}

	Logger = logger
	return nil
}

// GetLogger returns the global logger, initializing it with defaults when
// InitLogger has not run yet.
func GetLogger() *logrus.Logger {
	if Logger == nil {
		InitLogger("info", "json", "stdout", "")
	}
	return Logger
}
