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

/* Const */

const (
	defaultMaxSizeMB  = 5
	defaultMaxBackups = 10
	defaultMaxAgeDays = 14
)

/* Structs */

type Config struct {
	// Verbosity is the number of -v flags passed on the command line.
	Verbosity int
	// File is the activity log path, rotated with lumberjack. Empty disables file logging.
	File string
	// Output defaults to stderr so that stdout stays free for reports.
	Output io.Writer
}

/* Public */

func Init(cfg Config) error {
	switch {
	case cfg.Verbosity >= 2:
		logrus.SetLevel(logrus.TraceLevel)
	case cfg.Verbosity == 1:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return errors.Wrap(err, "create log directory")
		}

		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    defaultMaxSizeMB,
			MaxBackups: defaultMaxBackups,
			MaxAge:     defaultMaxAgeDays,
		})
	}

	logrus.SetOutput(out)
	logrus.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceFormatting: true,
	})

	return nil
}

// GetLogger returns an entry tagged with the given prefix.
func GetLogger(prefix string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"prefix": prefix,
	})
}
