package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger *zap.Logger

// InitLogger builds a development zap logger at the given level. Unknown
// levels fall back to info.
func InitLogger(logLevelStr string) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()

	name := strings.ToLower(strings.TrimSpace(logLevelStr))
	if name == "warning" {
		name = "warn"
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		level = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build(zap.Fields(zap.String("service", "proposal-ranker")))
	if err != nil {
		return nil, err
	}

	// Store for cleanup purposes
	globalLogger = logger

	return logger, nil
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}
