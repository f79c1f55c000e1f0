package telemetry

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/caffeineduck/hostcall/internal/config"
)

// NewLogger creates a configured *zap.Logger.
// The returned closer should be deferred to flush the logger and close file
// handles.
func NewLogger(cfg config.LoggerConfig) (*zap.Logger, func() error, error) {
	ws, closeOutput, err := openOutput(cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	logger := zap.New(zapcore.NewCore(enc, ws, ParseLevel(cfg.Level)))
	closer := func() error {
		_ = logger.Sync()
		return closeOutput()
	}
	return logger, closer, nil
}

// ParseLevel converts a string level to a zap level. Unknown strings mean
// info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func openOutput(output string) (zapcore.WriteSyncer, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(output) {
	case "stdout":
		return zapcore.Lock(os.Stdout), noop, nil
	case "stderr", "":
		return zapcore.Lock(os.Stderr), noop, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		return zapcore.Lock(f), f.Close, nil
	}
}
