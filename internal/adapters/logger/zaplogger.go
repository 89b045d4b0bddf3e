package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZapLogger implements the ports.Logger interface using zap with structured
// JSON output. When a file path is configured, log output also goes to a
// size-rotated file (5MB per file, 5 backups).
type ZapLogger struct {
	logger *zap.Logger
}

// ZapConfig holds configuration for the zap-backed logger.
type ZapConfig struct {
	Level    LogLevel
	FilePath string // Rotating log file; empty disables file output
	MaxSize  int    // Megabytes per log file before rotation (default 5)
	Backups  int    // Rotated files to retain (default 5)
}

// NewZapLogger creates a structured logger writing JSON to stderr and, when
// configured, to a rotating file.
func NewZapLogger(cfg ZapConfig) *ZapLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	syncers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stderr)}
	if cfg.FilePath != "" {
		maxSize := cfg.MaxSize
		if maxSize <= 0 {
			maxSize = 5
		}
		backups := cfg.Backups
		if backups <= 0 {
			backups = 5
		}
		syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    maxSize,
			MaxBackups: backups,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(syncers...), zapLevel(cfg.Level))
	return &ZapLogger{logger: zap.New(core)}
}

func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func zapFields(err error, fields ...map[string]interface{}) []zap.Field {
	var out []zap.Field
	if err != nil {
		out = append(out, zap.Error(err))
	}
	if len(fields) > 0 && fields[0] != nil {
		for k, v := range fields[0] {
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}

// Debug logs a message at Debug level.
func (l *ZapLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logger.Debug(msg, zapFields(nil, fields...)...)
}

// Info logs a message at Info level.
func (l *ZapLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logger.Info(msg, zapFields(nil, fields...)...)
}

// Warn logs a message at Warning level.
func (l *ZapLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logger.Warn(msg, zapFields(nil, fields...)...)
}

// Error logs an error message at Error level.
func (l *ZapLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.logger.Error(msg, zapFields(err, fields...)...)
}

// Sync flushes any buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
