package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hackgods/hospital-management-system/internal/config"
)

// Options selects where log lines go. The console UI owns stdout, so the
// interactive binary logs to a rotated file only.
type Options struct {
	ToStdout bool
	ToFile   bool
}

func New(cfg config.Config, opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var writers []io.Writer
	if opts.ToStdout {
		writers = append(writers, os.Stdout)
	}
	if opts.ToFile && cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}
	if len(writers) == 0 {
		return zap.NewNop(), nil
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.IsProd() {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(io.MultiWriter(writers...)), level)

	return zap.New(core, zap.AddCaller()).With(
		zap.String("service", "hms"),
		zap.String("env", cfg.Env),
	), nil
}
