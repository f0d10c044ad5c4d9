package logger

import (
	"github.com/greenbasket/groupbuy-service/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application zap logger from LoggerConfig.
func New(cfg *config.LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Encoding == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = cfg.Encoding
	zapCfg.DisableCaller = cfg.DisableCaller
	zapCfg.DisableStacktrace = cfg.DisableStacktrace

	return zapCfg.Build()
}
