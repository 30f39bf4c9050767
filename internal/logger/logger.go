package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.Logger
	mu     sync.RWMutex
)

func init() {
	// usable before Init runs (tests, CLI helpers)
	global = zap.NewNop()
}

// Init builds the process-wide logger at the given level ("debug", "info", ...).
// Unknown levels fall back to info.
func Init(level string) error {
	cfg := zap.NewProductionConfig()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	l, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	global = l
	return nil
}

// L returns the configured logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// WithModule returns a child logger tagged with the module name.
func WithModule(module string) *zap.Logger {
	return L().With(zap.String("module", module))
}

// Sync flushes buffered entries.
func Sync() error {
	return L().Sync()
}
