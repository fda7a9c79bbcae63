package config

import (
	"sync"

	"github.com/felipeek/gimmesh/logging"
)

var globalLogger struct {
	// Set once at startup.
	logger           logging.Logger
	cmdLineDebugFlag bool

	// Every job run may change this, re-evaluating the log level.
	mu           sync.Mutex
	jobDebugFlag bool
}

// InitLoggingSettings installs logger as the global logger, at debug level when cmdLineDebugFlag is set.
func InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	globalLogger.logger = logger
	globalLogger.cmdLineDebugFlag = cmdLineDebugFlag
	globalLogger.jobDebugFlag = false
	if cmdLineDebugFlag {
		logger.SetLevel(logging.DEBUG)
	} else {
		logger.SetLevel(logging.INFO)
	}
	logging.ReplaceGlobal(logger)
	logger.Debug("Log level initialized: ", logger.GetLevel())
}

// UpdateJobDebug is used to update the debug flag whenever a job file is loaded.
func UpdateJobDebug(jobDebug bool) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	globalLogger.jobDebugFlag = jobDebug
	refreshLogLevelInLock()
}

func refreshLogLevelInLock() {
	if globalLogger.logger == nil {
		return
	}
	newLevel := logging.INFO
	if globalLogger.cmdLineDebugFlag || globalLogger.jobDebugFlag {
		newLevel = logging.DEBUG
	}
	if globalLogger.logger.GetLevel() == newLevel {
		return
	}
	globalLogger.logger.Info("New log level: ", newLevel)
	globalLogger.logger.SetLevel(newLevel)
}
