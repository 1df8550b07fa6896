package cmd

import (
	"github.com/pkg/errors"

	"github.com/autobrr/dupescan/pkg/config"
	"github.com/autobrr/dupescan/pkg/logger"
)

var (
	// Global flags
	FlagLogLevel   = 0
	FlagConfigFile = ""
	FlagLogFile    = ""

	// Global vars
	initialized bool
)

func initCore() error {
	if initialized {
		return nil
	}

	if err := logger.Init(FlagLogLevel, FlagLogFile); err != nil {
		return errors.Wrap(err, "initialise logger")
	}

	if err := config.Init(FlagConfigFile); err != nil {
		return errors.Wrap(err, "initialise config")
	}

	initialized = true
	return nil
}
