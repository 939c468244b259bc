package telemetry

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/felixgeelhaar/studyplan"

func tracer() trace.Tracer {
	return GetTracerProvider().Tracer(instrumentation)
}

// StartCommandSpan creates the root span of a CLI command.
//
// Usage:
//
//	ctx, span := telemetry.StartCommandSpan(ctx, cmd.CommandPath())
//	cmd.SetContext(ctx)
func StartCommandSpan(ctx context.Context, path string) (context.Context, trace.Span) {
	return tracer().Start(ctx, path,
		trace.WithAttributes(
			attribute.String("command", path),
			attribute.String("component", "cli"),
		),
	)
}

// StartRequestSpan creates a client span for one API call. route is the
// templated path, e.g. /roadmaps/{id}.
func StartRequestSpan(ctx context.Context, method, route string) (context.Context, trace.Span) {
	return tracer().Start(ctx, method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("http.route", route),
			attribute.String("component", "api"),
		),
	)
}

// StartStreamSpan creates a span covering one event stream from open to the
// terminal event.
func StartStreamSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "stream "+name,
		trace.WithAttributes(
			attribute.String("stream", name),
			attribute.String("component", "stream"),
		),
	)
}

// Inject writes the trace context of ctx into h so the backend can join the
// trace.
func Inject(ctx context.Context, h http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
}

// RecordStatus sets the response status of a request span. 4xx and 5xx
// responses mark it failed.
func RecordStatus(span trace.Span, code int) {
	span.SetAttributes(attribute.Int("http.response.status_code", code))
	if code >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(code))
	}
}

// RecordSuccess marks a span as successful with optional result attributes.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records an error in a span and sets error status.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Finish records err, or success when it is nil, and ends the span.
func Finish(span trace.Span, err error) {
	if err != nil {
		RecordError(span, err)
	} else {
		RecordSuccess(span)
	}
	span.End()
}
