// Package logging builds the zap logger used across celerity-core. The core
// itself never decides whether a deployment is "production" or
// "development" -- that policy belongs to the host -- but it does provide
// the same encoder/output wiring the rest of the ecosystem uses so hosts
// don't each reinvent it.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/newstack-cloud/celerity-core/pkg/config"
)

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	case "panic":
		return zapcore.PanicLevel
	default:
		return zapcore.InfoLevel
	}
}

func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch strings.ToLower(format) {
	case "text", "console":
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return zapcore.NewJSONEncoder(encoderConfig)
	}
}

func newWriteSyncer(cfg config.LoggingConfig) (zapcore.WriteSyncer, error) {
	var writers []zapcore.WriteSyncer

	switch strings.ToLower(cfg.Output) {
	case "stderr":
		writers = append(writers, zapcore.AddSync(os.Stderr))
	default:
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}

	if cfg.EnableFile {
		dir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, zapcore.AddSync(file))
	}

	return zapcore.NewMultiWriteSyncer(writers...), nil
}

// New builds a *zap.Logger from a LoggingConfig, using the given caller-info
// flag (hosts typically wire this to their own dev/prod flag; the core has
// no opinion on which environment it's deployed to).
func New(cfg config.LoggingConfig, addCaller bool) (*zap.Logger, error) {
	writeSyncer, err := newWriteSyncer(cfg)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), writeSyncer, parseLevel(cfg.Level))

	opts := []zap.Option{}
	if addCaller {
		opts = append(opts, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	logger := zap.New(core, opts...)

	logger.Info("logger initialized",
		zap.String("level", cfg.Level),
		zap.String("format", cfg.Format),
		zap.String("output", cfg.Output),
		zap.Bool("file_enabled", cfg.EnableFile),
	)

	return logger, nil
}

var defaultLogger = newDefaultLogger()

func newDefaultLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Default returns the process-wide fallback logger used by the request
// dispatcher when a request has no request-scoped logger attached.
func Default() *zap.Logger {
	return defaultLogger
}

// SetDefault replaces the process-wide fallback logger. Hosts call this
// once at startup after building their logger with New.
func SetDefault(logger *zap.Logger) {
	if logger != nil {
		defaultLogger = logger
	}
}
