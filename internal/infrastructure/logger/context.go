package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// UserIDKey is the context key for the acting user's ID
	UserIDKey contextKey = "user_id"
	// ChurchIDKey is the context key for the caller's church scope
	ChurchIDKey contextKey = "church_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if
// not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithUserID adds the acting user's ID to context and returns the enriched
// logger
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	enriched := logger.With(zap.String("user_id", userID))
	return WithContext(ctx, enriched), enriched
}

// WithChurchID adds the caller's church scope to context and returns the
// enriched logger
func WithChurchID(ctx context.Context, logger *zap.Logger, churchID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, ChurchIDKey, churchID)
	enriched := logger.With(zap.String("church_id", churchID))
	return WithContext(ctx, enriched), enriched
}

// GetUserID retrieves the acting user's ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// GetChurchID retrieves the church scope from context
func GetChurchID(ctx context.Context) string {
	if churchID, ok := ctx.Value(ChurchIDKey).(string); ok {
		return churchID
	}
	return ""
}

// GetTraceID extracts the trace ID from the context's span. Returns an empty
// string if no active span exists or the trace is invalid.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return ""
	}
	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// WithTraceCorrelation enriches the logger with trace and span IDs when an
// active span is recording, so log lines can be joined to traces.
func WithTraceCorrelation(ctx context.Context, logger *zap.Logger) *zap.Logger {
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return logger
	}
	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}
