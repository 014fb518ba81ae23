package handlers

import (
	"context"

	"loot-tracker/pkg/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts a child span for a service operation. With telemetry disabled the span
// already on ctx (a no-op span) is returned.
func StartSpan(ctx context.Context, operationName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	if !config.GetBoolEnv("ENABLE_TELEMETRY", false) {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := otel.Tracer("loot-tracker/handlers").Start(ctx, operationName)
	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}
	return ctx, span
}
