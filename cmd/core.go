package cmd

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/dupefind/pkg/config"
	"github.com/autobrr/dupefind/pkg/logger"
)

var (
	// Global flags
	FlagLogLevel     = 0
	FlagConfigFile   = "config.yaml"
	FlagConfigFolder = config.GetDefaultConfigDirectory("dupefind", FlagConfigFile)
	FlagLogFile      = "activity.log"

	// Global vars
	log         *logrus.Entry
	initialized bool
)

func initCore() {
	configPath := resolve(FlagConfigFile)
	logPath := ""
	if FlagLogFile != "" {
		logPath = resolve(FlagLogFile)
	}

	if err := logger.Init(logger.Config{
		Verbosity: FlagLogLevel,
		File:      logPath,
	}); err != nil {
		logger.GetLogger("app").WithError(err).Fatal("Failed initialising logger")
	}

	log = logger.GetLogger("app")

	if err := config.Init(configPath); err != nil {
		log.WithError(err).Fatal("Failed initialising config")
	}

	log.Tracef("Using config: %q", configPath)
}

// resolve places relative file flags inside the config folder.
func resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(FlagConfigFolder, p)
}
