package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func encoderFor(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	if strings.EqualFold(strings.TrimSpace(format), FormatJSON) {
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func build(lvl zapcore.Level, format string) *Logger {
	level := zap.NewAtomicLevelAt(lvl)
	core := zapcore.NewCore(encoderFor(format), zapcore.Lock(os.Stdout), level)
	return &Logger{
		SugaredLogger: zap.New(core, zap.AddCaller()).Sugar(),
		level:         &level,
	}
}
