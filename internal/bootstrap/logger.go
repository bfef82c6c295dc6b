package bootstrap

import (
	"exchanges_gateway/internal/core"
	"exchanges_gateway/pkg/logging"
)

// InitLogger builds the zap logger described by the system section.
func InitLogger(cfg *Config) (core.ILogger, error) {
	logger, err := logging.New(logging.Options{
		Level:  cfg.System.LogLevel,
		JSON:   cfg.System.LogJSON,
		Bridge: true,
	})
	if err != nil {
		return nil, err
	}
	return logger.WithField("app", cfg.App.Name), nil
}
