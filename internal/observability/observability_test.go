package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceFields(t *testing.T) {
	assert.Empty(t, TraceFields(context.Background()))
	assert.Empty(t, SpanField(context.Background()))

	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: trace.TraceID{0xa}, SpanID: trace.SpanID{0xb}})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	assert.Equal(t, []Field{
		F("trace_id", sc.TraceID().String()),
		F("span_id", sc.SpanID().String()),
	}, TraceFields(ctx))
	assert.Equal(t, []Field{F("span_id", sc.SpanID().String())}, SpanField(ctx))
}

func TestNopFallbacks(t *testing.T) {
	o := Nop()
	o.Logger().With(F("k", "v")).Info("ignored")
	o.Metrics().Counter(MUsecaseRequests).Bind(L("use_case", "x")).Add(1)
	o.Metrics().Histogram(MUsecaseDuration).Bind().Observe(0.1)
	ctx, span := o.Tracer().Start(context.Background(), "noop")
	defer span.End()
	assert.NotNil(t, ctx)
}
