package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry span management for a guarded call, adapted
// from the jonwraymond-toolops observe package's Tracer interface to the
// resilience primitives' span naming (breaker/retry/ipc operation names
// rather than tool invocations).
type Tracer interface {
	// StartSpan starts a span named for the given component and
	// operation, e.g. ("yara-scanner", "execute").
	StartSpan(ctx context.Context, component, operation string) (context.Context, trace.Span)

	// EndSpan ends span, recording err if non-nil. Best-effort: must
	// never panic.
	EndSpan(span trace.Span, err error)
}

type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry trace.Tracer. Pass nil to get a
// functioning no-op tracer backed by the otel noop provider.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("sentinelcore/resilience")
	}
	return &otelTracer{tracer: t}
}

// NoopTracer returns a Tracer that produces no spans, the default for
// every primitive that does not configure one explicitly.
func NoopTracer() Tracer { return NewTracer(nil) }

func (t *otelTracer) StartSpan(ctx context.Context, component, operation string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, component+"."+operation,
		trace.WithAttributes(
			attribute.String("resilience.component", component),
			attribute.String("resilience.operation", operation),
		),
	)
	return ctx, span
}

func (t *otelTracer) EndSpan(span trace.Span, err error) {
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
