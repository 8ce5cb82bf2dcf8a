// Package telemetry provides OpenTelemetry span plumbing for the gateway.
// This package is internal and should not be imported by external projects.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/BaSui01/censorgate"

// Tracer wraps an otel tracer with submission-shaped helpers.
type Tracer struct {
	tracer oteltrace.Tracer
}

// NewTracer returns a Tracer backed by the globally configured otel
// provider. With no provider configured all spans are no-ops, so the flow
// layer can call this unconditionally.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(tracerName)}
}

// StartSubmission opens a span for one submission.
func (t *Tracer) StartSubmission(ctx context.Context, contentType, fingerprint string) (context.Context, oteltrace.Span) {
	return t.tracer.Start(ctx, "censorgate.submit",
		oteltrace.WithAttributes(
			attribute.String("censor.content_type", contentType),
			attribute.String("censor.fingerprint", fingerprint),
		),
	)
}

// StartProviderCall opens a child span for one upstream provider call.
func (t *Tracer) StartProviderCall(ctx context.Context, provider string) (context.Context, oteltrace.Span) {
	return t.tracer.Start(ctx, "censorgate.provider.detect",
		oteltrace.WithAttributes(attribute.String("censor.provider", provider)),
	)
}

// EndWithVerdict annotates and closes a span with the final verdict.
func EndWithVerdict(span oteltrace.Span, risk string, cached bool) {
	span.SetAttributes(
		attribute.String("censor.risk", risk),
		attribute.Bool("censor.cached", cached),
	)
	span.End()
}

// EndWithError records a provider failure on the span.
func EndWithError(span oteltrace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}
