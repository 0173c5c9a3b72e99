package array

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the array package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the array package's logger.
// This must be called before any array operations.
func SetLogger(l *zap.Logger) {
	logger = l
}

// debug gates the per-operation trace logging and the internal
// consistency checks that mirror the development builds of the native
// runtime.
var debug = false

// SetDebug toggles the per-operation tracing. Like SetLogger, call it
// before any array operations run.
func SetDebug(on bool) {
	debug = on
}

func debugf(format string, args ...any) {
	if debug {
		Logger().Sugar().Debugf(format, args...)
	}
}
