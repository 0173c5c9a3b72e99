package exist

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the exist package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the exist package's logger.
// This must be called before any container operations.
func SetLogger(l *zap.Logger) {
	logger = l
}

// debug gates the per-operation trace logging.
var debug = false

// SetDebug toggles the per-operation tracing. Like SetLogger, call it
// before any container operations run.
func SetDebug(on bool) {
	debug = on
}

func debugf(format string, args ...any) {
	if debug {
		Logger().Sugar().Debugf(format, args...)
	}
}
