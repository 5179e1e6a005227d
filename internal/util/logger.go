// internal/util/logger.go
package util

import (
	"log/slog"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

var (
	loggerMu sync.Mutex
	logger   *slog.Logger
	syncFunc = func() error { return nil }
)

// LoggerConfig selects the zap backend behind the structured logger.
type LoggerConfig struct {
	Level      string // debug, info, warn, error
	Production bool   // JSON output when true, colored console otherwise
}

// InitLogger initializes the global structured logger.
// Records go through slog and are encoded by zap.
func InitLogger(cfg LoggerConfig) {
	l, flush := buildLogger(cfg)
	loggerMu.Lock()
	logger, syncFunc = l, flush
	loggerMu.Unlock()
	slog.SetDefault(l)
}

func buildLogger(cfg LoggerConfig) (*slog.Logger, func() error) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Production {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	zapLogger := zap.Must(zc.Build())
	return slog.New(zapslog.NewHandler(zapLogger.Core())), zapLogger.Sync
}

// GetLogger returns the global logger, initializing a production one on first
// use if InitLogger was never called.
func GetLogger() *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		logger, syncFunc = buildLogger(LoggerConfig{Level: "info", Production: true})
		slog.SetDefault(logger)
	}
	return logger
}

// SyncLogger flushes buffered log entries. Call it once on shutdown.
func SyncLogger() error {
	loggerMu.Lock()
	flush := syncFunc
	loggerMu.Unlock()
	return flush()
}
