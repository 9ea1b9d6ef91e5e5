// ABOUTME: This file provides the slog-based unified logger for the harvester.
// ABOUTME: Emits lowercase level/msg/time JSON compatible with the log pipeline.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// UnifiedLogger wraps slog with the JSON field names the log pipeline
// expects: "time", lowercase "level" and "msg", plus service identity
// attributes on every record.
type UnifiedLogger struct {
	logger      *slog.Logger
	serviceName string
}

// NewUnifiedLogger creates a UnifiedLogger writing JSON to stdout.
func NewUnifiedLogger(serviceName string) *UnifiedLogger {
	return NewUnifiedLoggerWithLevel(os.Stdout, serviceName, "debug")
}

// NewUnifiedLoggerWithLevel creates a UnifiedLogger with a specific log level.
func NewUnifiedLoggerWithLevel(output io.Writer, serviceName, level string) *UnifiedLogger {
	handler := slog.NewJSONHandler(output, unifiedHandlerOptions(parseLevel(level)))
	return newUnifiedLogger(handler, serviceName)
}

// NewUnifiedLoggerWithOTel creates a UnifiedLogger that fans records out to
// stdout and, when enabled, to the OTel log exporter via the otelslog bridge.
func NewUnifiedLoggerWithOTel(serviceName, level string, enableOTel bool) *UnifiedLogger {
	slogLevel := parseLevel(level)
	stdoutHandler := slog.NewJSONHandler(os.Stdout, unifiedHandlerOptions(slogLevel))

	var handler slog.Handler = stdoutHandler
	if enableOTel {
		handler = NewMultiHandler(stdoutHandler, slogLevel)
	}

	return newUnifiedLogger(handler, serviceName)
}

func newUnifiedLogger(handler slog.Handler, serviceName string) *UnifiedLogger {
	logger := slog.New(handler).With("service", serviceName, "version", "1.0.0")
	return &UnifiedLogger{
		logger:      logger,
		serviceName: serviceName,
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func unifiedHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "time", Value: a.Value}
			case slog.LevelKey:
				// Lowercase for the log forwarder.
				if level, ok := a.Value.Any().(slog.Level); ok {
					return slog.Attr{Key: "level", Value: slog.StringValue(strings.ToLower(level.String()))}
				}
				return a
			case slog.MessageKey:
				return slog.Attr{Key: "msg", Value: a.Value}
			default:
				return a
			}
		},
	}
}

// WithContext returns an slog logger carrying any run, worker, operation,
// source and request identifiers present on the context.
func (ul *UnifiedLogger) WithContext(ctx context.Context) *slog.Logger {
	var fields []any

	if runID := ctx.Value(RunIDKey); runID != nil {
		fields = append(fields, "run_id", runID)
	}

	if workerID := ctx.Value(WorkerIDKey); workerID != nil {
		fields = append(fields, "worker_id", workerID)
	}

	if operation := ctx.Value(OperationKey); operation != nil {
		fields = append(fields, "operation", operation)
	}

	if source := ctx.Value(SourceKey); source != nil {
		fields = append(fields, "source", source)
	}

	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		fields = append(fields, "request_id", requestID)
	}

	if len(fields) > 0 {
		return ul.logger.With(fields...)
	}

	return ul.logger
}

// Logger exposes the underlying slog logger.
func (ul *UnifiedLogger) Logger() *slog.Logger {
	return ul.logger
}

// Info logs an info message (convenience method)
func (ul *UnifiedLogger) Info(msg string, args ...any) {
	ul.logger.Info(msg, args...)
}

// Error logs an error message (convenience method)
func (ul *UnifiedLogger) Error(msg string, args ...any) {
	ul.logger.Error(msg, args...)
}

// Debug logs a debug message (convenience method)
func (ul *UnifiedLogger) Debug(msg string, args ...any) {
	ul.logger.Debug(msg, args...)
}

// Warn logs a warning message (convenience method)
func (ul *UnifiedLogger) Warn(msg string, args ...any) {
	ul.logger.Warn(msg, args...)
}

// With returns a logger with additional attributes (convenience method)
func (ul *UnifiedLogger) With(args ...any) *UnifiedLogger {
	return &UnifiedLogger{
		logger:      ul.logger.With(args...),
		serviceName: ul.serviceName,
	}
}
