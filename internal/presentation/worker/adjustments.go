package workerpresentation

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/salemaljebaly/mstore-api-optimizer/internal/application"
	appadjustment "github.com/salemaljebaly/mstore-api-optimizer/internal/application/adjustment"
	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	domoutbox "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/outbox"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
)

// AdjustmentWorker consumes stock adjustment events from the in-process bus.
type AdjustmentWorker struct {
	subscriber domoutbox.Subscriber
	useCase    application.UseCase[domcart.StockAdjustedEvent, *appadjustment.RelayResult]
	tel        observability.Observability
	log        observability.Logger
}

func NewAdjustmentWorker(
	subscriber domoutbox.Subscriber,
	useCase application.UseCase[domcart.StockAdjustedEvent, *appadjustment.RelayResult],
	tel observability.Observability,
) *AdjustmentWorker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &AdjustmentWorker{
		subscriber: subscriber,
		useCase:    useCase,
		tel:        tel,
		log:        tel.Logger().With(observability.F("component", "adjustment_worker")),
	}
}

func (w *AdjustmentWorker) Start() {
	if w.subscriber == nil || w.useCase == nil {
		return
	}
	w.subscriber.Subscribe(domcart.StockAdjustedEvent{}.EventName(), w.handle)
}

func (w *AdjustmentWorker) handle(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domcart.StockAdjustedEvent)
	if !ok {
		w.log.Debug("event_ignored", observability.F("event", e.EventName()))
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	ctx = WithEventContext(ctx, w.log, w.tel, sc.TraceID(), sc.SpanID(), map[string]string{
		"event":   e.EventName(),
		"variant": evt.Variant,
	})
	_, err := w.useCase.Execute(ctx, evt)
	return err
}
