package main

import (
	"github.com/goliatone/go-carousel/cmd/carousel-server/config"
	"github.com/goliatone/go-carousel/carousel"
	"go.uber.org/zap"
)

// ZapLogger adapts a zap sugared logger to carousel.Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ carousel.Logger = (*ZapLogger)(nil)

// NewZapLogger builds a logger from the log config.
func NewZapLogger(cfg config.LogConfig) (*ZapLogger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	base, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return WrapZap(base), nil
}

// WrapZap adapts an existing zap logger.
func WrapZap(base *zap.Logger) *ZapLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ZapLogger{sugar: base.Sugar().Named("carousel")}
}

func (l *ZapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *ZapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *ZapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}
