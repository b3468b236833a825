// Package tierlog builds the zap.Logger used throughout the engine, with
// a lumberjack-rotated file sink configured from pkg/settings.Logger.
package tierlog

import (
	"github.com/quanla-dev/tierstore/pkg/settings"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger writing JSON-encoded entries to a rotating file
// sink. There is no global logger; callers inject the result at
// construction (engine.New(cfg, logger)).
func New(cfg settings.Logger) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing log level %q", cfg.LogLevel)
	}

	sink := &lumberjack.Logger{
		Filename:   cfg.FileLogName,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		MaxSize:    cfg.MaxSize,
		Compress:   cfg.Compress,
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(sink),
		level,
	)

	return zap.New(core), nil
}
