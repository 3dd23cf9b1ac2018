package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *zap.Logger
	once         sync.Once
)

// Init builds the process logger. environment "production" gives JSON output
// with ISO8601 timestamps, anything else a colored console encoder.
func Init(environment, level, format string) *zap.Logger {
	once.Do(func() {
		var config zap.Config

		if environment == "production" {
			config = zap.NewProductionConfig()
			config.EncoderConfig.TimeKey = "timestamp"
			config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			config.DisableStacktrace = true
		} else {
			config = zap.NewDevelopmentConfig()
			config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		config.Level = zap.NewAtomicLevelAt(parseLevel(level))

		if format == "json" {
			config.Encoding = "json"
		} else if format == "console" {
			config.Encoding = "console"
		}

		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}

		l, err := config.Build(zap.AddCaller())
		if err != nil {
			panic("failed to initialize logger: " + err.Error())
		}
		globalLogger = l
		zap.ReplaceGlobals(globalLogger)
	})

	return globalLogger
}

// Get returns the process logger, or a no-op logger when Init was never
// called (unit tests).
func Get() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// Named returns a child logger tagged with the component name.
func Named(component string) *zap.Logger {
	return Get().Named(component)
}

// Sync flushes buffered entries.
func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
