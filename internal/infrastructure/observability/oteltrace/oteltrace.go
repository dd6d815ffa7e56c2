package oteltrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
)

const defaultTracerName = "mstore-api-optimizer"

type tracer struct {
	name string
}

// New returns a Tracer that resolves the global provider on every span, so a provider
// installed after construction still takes effect.
func New(name string) observability.Tracer {
	if name == "" {
		name = defaultTracerName
	}
	return &tracer{name: name}
}

// Start opens an internal span; use-case spans are children of the HTTP server span.
func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(t.name).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}
