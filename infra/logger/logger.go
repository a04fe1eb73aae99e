package logger

import corelogger "github.com/kilianp07/gridsim/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component. The output format is
// selected by APP_ENV and the level by LOG_LEVEL.
func New(component string) Logger {
	return NewZerologLogger(component)
}
