package observability

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/adamwoolhether/oneshot"

// Tracer starts client spans around request execution.
type Tracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracer returns a Tracer backed by provider. A nil provider yields a
// no-op tracer.
func NewTracer(provider trace.TracerProvider) *Tracer {
	if provider == nil {
		provider = noop.NewTracerProvider()
	}

	return &Tracer{
		tracer:     provider.Tracer(instrumentationName),
		propagator: otel.GetTextMapPropagator(),
	}
}

// Start opens a client span for req and injects the trace context into its
// headers.
func (t *Tracer) Start(ctx context.Context, req *http.Request, execID string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
			attribute.String("server.address", req.URL.Hostname()),
			attribute.String("oneshot.exec_id", execID),
		),
	)

	t.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	return ctx, span
}

// End closes span, marking it failed on err or on a 4xx/5xx status.
func (t *Tracer) End(span trace.Span, code int, err error) {
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case code >= 400:
		span.SetAttributes(attribute.Int("http.response.status_code", code))
		span.SetStatus(codes.Error, http.StatusText(code))
	default:
		span.SetAttributes(attribute.Int("http.response.status_code", code))
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}
