// Package log holds the process-wide zap logger shared by the analysis
// tools.
package log

import (
	"fmt"

	"go.uber.org/zap"
)

var log *zap.SugaredLogger
var baseLogger *zap.Logger

// Init builds the package logger. Debug mode switches to zap's development
// config with per-call debug output; production config otherwise.
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	baseLogger = zapLogger
	log = zapLogger.Sugar()
	return nil
}

// GetZapLogger returns the unsugared logger, used where a *zap.Logger is
// required (the gorm adapter)
func GetZapLogger() *zap.Logger {
	if baseLogger == nil {
		initFallback()
	}
	return baseLogger
}

// GetSugaredLogger returns the sugared logger for injection into packages
// that take their logger as a dependency
func GetSugaredLogger() *zap.SugaredLogger {
	if log == nil {
		initFallback()
	}
	return log
}

// initFallback covers callers that log before Init runs
func initFallback() {
	baseLogger, _ = zap.NewProduction(zap.AddCallerSkip(1))
	log = baseLogger.Sugar()
}

// Sync flushes any buffered log entries
func Sync() {
	if log != nil {
		log.Sync()
	}
}

func Infof(template string, args ...interface{}) {
	log.Infof(template, args...)
}

func Warnf(template string, args ...interface{}) {
	log.Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	log.Errorf(template, args...)
}
