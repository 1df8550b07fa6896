package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

const (
	maxLogSizeMB  = 5
	maxLogBackups = 10
	maxLogAgeDays = 14
)

// Init configures the shared logrus logger.
// verbosity 0 logs info and above, 1 adds debug, 2 or more adds trace.
// When logFile is not empty, output is also written to a rotating log file.
func Init(verbosity int, logFile string) error {
	logLevel := logrus.InfoLevel
	switch {
	case verbosity == 1:
		logLevel = logrus.DebugLevel
	case verbosity > 1:
		logLevel = logrus.TraceLevel
	}

	var output io.Writer = os.Stderr
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return errors.Wrapf(err, "create log directory for %s", logFile)
		}

		output = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
			Compress:   true,
		})
	}

	logrus.SetOutput(output)
	logrus.SetLevel(logLevel)
	logrus.SetFormatter(&prefixed.TextFormatter{
		// colors would end up as escape codes in the log file
		DisableColors:   logFile != "",
		ForceFormatting: true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return nil
}

// GetLogger returns a logger entry tagged with prefix.
func GetLogger(prefix string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"prefix": prefix,
	})
}
