// Package logging builds the zap logger of the sendbuf demo.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/config"
)

// New returns a logger writing JSON to stderr and, if cfg.File is set, to a rotated file. The
// returned closer flushes the logger and closes the file.
func New(cfg config.LogConfig) (*zap.Logger, func() error, error) {
	return build(cfg, os.Stderr)
}

func build(cfg config.LogConfig, stderr io.Writer) (*zap.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse level: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var (
		encoder = zapcore.NewJSONEncoder(encoderConfig)
		cores   = []zapcore.Core{
			zapcore.NewCore(encoder, zapcore.AddSync(stderr), level),
		}
		file *lumberjack.Logger
	)

	if cfg.File != "" {
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(file), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())

	closer := func() error {
		// Sync of stderr fails on some platforms, so its error is ignored.
		_ = logger.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}

	return logger, closer, nil
}
