package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { w.closed = true; return nil }

func TestPublisher_WritesKeyedJSONWithTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	w := &fakeWriter{}
	p := NewPublisher(w)
	report := domcart.StockAdjustmentReport{{ProductID: 2, Requested: 4, Reason: domcart.ReasonOutOfStock}}
	require.NoError(t, p.Publish(ctx, domcart.NewStockAdjustedEvent("sess-1", "shipping", report, 0)))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "sess-1", string(msg.Key))
	carrier := headerCarrier{msg: &msg}
	assert.Equal(t, "cart.stock_adjusted", carrier.Get(headerEventName))
	assert.Contains(t, carrier.Get("traceparent"), sc.TraceID().String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "shipping", body["variant"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewPublisher(&fakeWriter{err: boom})
	err := p.Publish(context.Background(), domcart.NewStockAdjustedEvent("s", "payment", nil, 1))
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, p.Publish(context.Background(), nil))
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"k1:9092"}, "cart.stock_adjusted")
	assert.Equal(t, "cart.stock_adjusted", w.Topic)
}
