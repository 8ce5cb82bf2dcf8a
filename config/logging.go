package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/censorgate/types"
)

// NewLogger builds a zap logger from the log section.
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, types.NewConfigurationError("invalid log level: " + c.Level)
	}

	zc := zap.NewProductionConfig()
	if c.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if len(c.OutputPaths) > 0 {
		zc.OutputPaths = c.OutputPaths
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, types.NewConfigurationError("build logger failed").WithCause(err)
	}
	return logger, nil
}
