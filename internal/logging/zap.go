package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter forwards to a *zap.SugaredLogger. The sugared "w" methods
// take the same loose key/value pairs as Logger.
type ZapAdapter struct {
	logger *zap.SugaredLogger
}

// FromZap wraps logger. A nil logger discards everything.
func FromZap(logger *zap.Logger) *ZapAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapAdapter{logger: logger.Sugar()}
}

// NewZap builds a zap logger at level ("debug", "info", "warn", "error").
// Format "json" gives production output; anything else a colored console.
func NewZap(level, format string) (*ZapAdapter, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cfg.EncoderConfig.ConsoleSeparator = "  "
		cfg.DisableCaller = true
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return FromZap(logger), nil
}

func (a *ZapAdapter) Info(msg string, keyValues ...any)  { a.logger.Infow(msg, keyValues...) }
func (a *ZapAdapter) Warn(msg string, keyValues ...any)  { a.logger.Warnw(msg, keyValues...) }
func (a *ZapAdapter) Error(msg string, keyValues ...any) { a.logger.Errorw(msg, keyValues...) }
func (a *ZapAdapter) Debug(msg string, keyValues ...any) { a.logger.Debugw(msg, keyValues...) }

// Sync flushes buffered entries.
func (a *ZapAdapter) Sync() error { return a.logger.Sync() }
