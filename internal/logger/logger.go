package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once sync.Once
	base *zap.Logger
)

// Init builds the process-wide logger. Idempotent: only the first
// call has effect. Must be called at the top of main.
func Init() {
	once.Do(func() {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.Lock(os.Stdout),
			levelFromEnv(),
		)
		base = zap.New(core)
	})
}

func levelFromEnv() zapcore.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func l() *zap.Logger {
	if base == nil {
		Init()
	}
	return base
}

func zapFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func Info(msg string, fields map[string]any) {
	l().Info(msg, zapFields(fields)...)
}

func Warn(msg string, fields map[string]any) {
	l().Warn(msg, zapFields(fields)...)
}

func Error(msg string, fields map[string]any) {
	l().Error(msg, zapFields(fields)...)
}

func Fatal(msg string, fields map[string]any) {
	l().Fatal(msg, zapFields(fields)...)
}

// Sync flushes any buffered entries. Call with defer in main.
func Sync() error {
	if base != nil {
		return base.Sync()
	}
	return nil
}
