package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartEndpointSpan starts the span covering every wave sent to one target.
func StartEndpointSpan(ctx context.Context, tracer trace.Tracer, replay, target string, iterations, concurrency int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "replay "+target,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("webreplay.replay", replay),
			attribute.String("webreplay.target", target),
			attribute.Int("webreplay.iterations", iterations),
			attribute.Int("webreplay.concurrency", concurrency),
		),
	)
}

// StartRequestSpan starts the client span of one replayed GET.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, target string) (context.Context, trace.Span) {
	return tracer.Start(ctx, http.MethodGet+" "+target,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodGet),
			attribute.String("webreplay.target", target),
		),
	)
}

// EndSpan sets the final attributes and status, then ends span.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders writes the trace context of ctx into headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
