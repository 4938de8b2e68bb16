package mylogger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// withTrace appends the ids of the span carried by ctx, if any.
func withTrace(ctx context.Context, fields []zap.Field) []zap.Field {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return fields
	}

	return append(fields,
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}

func caller(logger *zap.Logger) *zap.Logger {
	return logger.WithOptions(zap.AddCallerSkip(1))
}

func Debug(ctx context.Context, logger *zap.Logger, msg string, fields ...zap.Field) {
	caller(logger).Debug(msg, withTrace(ctx, fields)...)
}

func Info(ctx context.Context, logger *zap.Logger, msg string, fields ...zap.Field) {
	caller(logger).Info(msg, withTrace(ctx, fields)...)
}

func Warn(ctx context.Context, logger *zap.Logger, msg string, fields ...zap.Field) {
	caller(logger).Warn(msg, withTrace(ctx, fields)...)
}

func Error(ctx context.Context, logger *zap.Logger, msg string, fields ...zap.Field) {
	caller(logger).Error(msg, withTrace(ctx, fields)...)
}
