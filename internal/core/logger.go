package core

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger    *slog.Logger
	logOutput io.Writer = os.Stderr
)

// NewLogger builds a tint-backed slog logger writing to output.
func NewLogger(output io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(output, &tint.Options{
		Level:      level,
		AddSource:  verbose,
		TimeFormat: "15:04:05.000",
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindAny {
				if _, ok := a.Value.Any().(error); ok {
					return tint.Attr(9, a)
				}
			}
			return a
		},
	})
	return slog.New(handler)
}

// NewZapLogger builds the console zap logger that pollytool logs through.
func NewZapLogger(output io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoder := zap.NewDevelopmentEncoderConfig()
	encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoder.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	sink := zapcore.NewCore(zapcore.NewConsoleEncoder(encoder), zapcore.AddSync(output), level)
	return zap.New(sink)
}

// InitLogger installs the process-wide logger and makes it the slog default.
// The zap globals are replaced too so library logs reach the same output.
func InitLogger(verbose bool) {
	l := NewLogger(logOutput, verbose)
	slog.SetDefault(l)
	logger = l
	zap.ReplaceGlobals(NewZapLogger(logOutput, verbose))
}

// GetLogger returns the process-wide logger
func GetLogger() *slog.Logger {
	if logger == nil {
		InitLogger(false) // Default to non-verbose if not initialized
	}
	return logger
}

// WithFields creates a logger with the given structured fields
func WithFields(fields ...any) *slog.Logger {
	return GetLogger().With(fields...)
}

// LogDuration logs the duration of an operation
// Usage: defer LogDuration(logger, "operation_name", time.Now())
func LogDuration(logger *slog.Logger, operation string, start time.Time) {
	duration := time.Since(start)
	logger.Debug("operation completed",
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	)
}

// WithTool creates a logger with tool execution context
func WithTool(logger *slog.Logger, toolName string, args map[string]any) *slog.Logger {
	if args == nil {
		return logger.With("tool", toolName)
	}
	return logger.With(
		"tool", toolName,
		"tool_args", args,
	)
}

// Preview shortens s for log output unless verbose is set.
func Preview(s string, verbose bool) string {
	if verbose || len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}
