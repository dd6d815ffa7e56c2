package workerpresentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appadjustment "github.com/salemaljebaly/mstore-api-optimizer/internal/application/adjustment"
	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	domoutbox "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/outbox"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability/observabilitytest"
)

type fakeSubscriber struct {
	handlers map[string]domoutbox.Handler
}

func (s *fakeSubscriber) Subscribe(name string, h domoutbox.Handler) {
	if s.handlers == nil {
		s.handlers = map[string]domoutbox.Handler{}
	}
	s.handlers[name] = h
}

type fakeSink struct {
	events []domoutbox.Event
	err    error
}

func (s *fakeSink) Publish(_ context.Context, e domoutbox.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

type otherEvent struct{}

func (otherEvent) EventName() string { return "cart.stock_adjusted" }

func TestAdjustmentWorker_RelaysToSink(t *testing.T) {
	rec := observabilitytest.New()
	sink := &fakeSink{}
	sub := &fakeSubscriber{}
	NewAdjustmentWorker(sub, appadjustment.NewRelayUseCase(sink, rec), rec).Start()

	h := sub.handlers["cart.stock_adjusted"]
	require.NotNil(t, h)

	report := domcart.StockAdjustmentReport{{ProductID: 1, Requested: 3, Available: 1, Reason: domcart.ReasonLimitedStock}}
	require.NoError(t, h(context.Background(), domcart.NewStockAdjustedEvent("s1", "shipping", report, 0)))
	require.NoError(t, h(context.Background(), otherEvent{}))

	assert.Len(t, sink.events, 1)
	assert.Equal(t, 1.0, rec.Count(observability.MAdjustmentEvents,
		observability.L("variant", "shipping"), observability.L("outcome", "success")))

	stock := rec.Entries("stock_adjusted")
	require.Len(t, stock, 1)
	assert.Equal(t, 1, stock[0].Fields["limited_stock"])
	assert.NotEmpty(t, stock[0].Fields["event_id"])
}

func TestAdjustmentWorker_WithoutSinkOnlyLogs(t *testing.T) {
	rec := observabilitytest.New()
	sub := &fakeSubscriber{}
	NewAdjustmentWorker(sub, appadjustment.NewRelayUseCase(nil, rec), rec).Start()

	require.NoError(t, sub.handlers["cart.stock_adjusted"](context.Background(),
		domcart.NewStockAdjustedEvent("s1", "payment", nil, 2)))
	assert.Equal(t, 1.0, rec.Count(observability.MAdjustmentEvents,
		observability.L("variant", "payment"), observability.L("outcome", "logged")))
}

func TestAdjustmentWorker_SinkFailure(t *testing.T) {
	rec := observabilitytest.New()
	sink := &fakeSink{err: errors.New("broker down")}
	sub := &fakeSubscriber{}
	NewAdjustmentWorker(sub, appadjustment.NewRelayUseCase(sink, rec), rec).Start()

	err := sub.handlers["cart.stock_adjusted"](context.Background(),
		domcart.NewStockAdjustedEvent("s1", "payment", nil, 1))
	assert.ErrorIs(t, err, appadjustment.ErrRelay)
	assert.ErrorIs(t, err, sink.err)
	assert.Equal(t, 1.0, rec.Count(observability.MExternalRequests,
		observability.L("peer", "event_sink"),
		observability.L("endpoint", "cart.stock_adjusted"),
		observability.L("outcome", "error")))
}
