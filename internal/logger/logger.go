// Package logger provides structured logging for the seeder, backed by zap.
package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Interface defines the logger interface used across the pipeline.
type Interface interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	Fatal(msg string, fields ...any)
	With(fields ...any) Interface
}

// Config represents the logger configuration.
type Config struct {
	// Level is the minimum logging level (debug, info, warn, error).
	Level string `mapstructure:"level" yaml:"level"`
	// Encoding selects the output format: console or json.
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
	// Development enables human-friendly timestamps and colored levels.
	Development bool `mapstructure:"development" yaml:"development"`
}

// Logger implements Interface on top of a zap.Logger.
type Logger struct {
	zl *zap.Logger
}

var logLevels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"fatal": zapcore.FatalLevel,
}

// New creates a logger from the given configuration.
func New(cfg Config) (Interface, error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "console"
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	if cfg.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("15:04:05"))
		}
		encoderConfig.ConsoleSeparator = " | "
	}

	zcfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level(cfg.Level)),
		Development:      cfg.Development,
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	zl, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{zl: zl}, nil
}

func level(s string) zapcore.Level {
	if lvl, ok := logLevels[strings.ToLower(s)]; ok {
		return lvl
	}
	return zapcore.InfoLevel
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...any) { l.zl.Debug(msg, toZapFields(fields)...) }

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...any) { l.zl.Info(msg, toZapFields(fields)...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...any) { l.zl.Warn(msg, toZapFields(fields)...) }

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...any) { l.zl.Error(msg, toZapFields(fields)...) }

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, fields ...any) { l.zl.Fatal(msg, toZapFields(fields)...) }

// With creates a child logger with the given fields attached.
func (l *Logger) With(fields ...any) Interface {
	return &Logger{zl: l.zl.With(toZapFields(fields)...)}
}

// toZapFields converts alternating key/value pairs to zap fields. Raw
// zap.Field values pass through unchanged; a trailing key without a value is
// dropped.
func toZapFields(fields []any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	zapFields := make([]zap.Field, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		switch field := fields[i].(type) {
		case zap.Field:
			zapFields = append(zapFields, field)
		case string:
			if i+1 >= len(fields) {
				continue
			}
			zapFields = append(zapFields, zap.Any(field, fields[i+1]))
			i++
		}
	}
	return zapFields
}
