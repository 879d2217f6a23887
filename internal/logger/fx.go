package logger

import (
	"context"

	"github.com/bldragon101/worklog/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newFromConfig(cfg config.Config) (*zap.Logger, error) {
	log, err := New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("app", cfg.AppName)), nil
}

func flushOnStop(lc fx.Lifecycle, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
}

// Module wires the application logger and flushes it on shutdown.
var Module = fx.Module("logger",
	fx.Provide(newFromConfig),
	fx.Invoke(flushOnStop),
)
