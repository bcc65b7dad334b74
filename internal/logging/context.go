package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	requestCtxKey struct{}
	queryCtxKey   struct{}
	loggerCtxKey  struct{}
)

// maxIDLen bounds ids copied from request headers.
const maxIDLen = 128

// ContextFields extracts correlation fields from ctx: the active span, the
// HTTP request id and the query id.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if id := QueryIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("query.id", id))
	}
	return fields
}

// WithRequestID stores an HTTP request id. Empty or oversized ids are
// ignored.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" || len(id) > maxIDLen {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithQueryID stores the id of the question being answered.
func WithQueryID(ctx context.Context, id string) context.Context {
	if id == "" || len(id) > maxIDLen {
		return ctx
	}
	return context.WithValue(ctx, queryCtxKey{}, id)
}

// QueryIDFromContext returns the query id, or "".
func QueryIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(queryCtxKey{}).(string)
	return id
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}
