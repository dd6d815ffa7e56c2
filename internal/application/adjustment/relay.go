package adjustment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/salemaljebaly/mstore-api-optimizer/internal/application"
	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	domoutbox "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/outbox"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability/logctx"
)

var ErrRelay = errors.New("adjustment: relay failed")

const (
	serviceName   = "adjustment_relay"
	useCaseRelay  = "adjustment.relay"
	peerSink      = "event_sink"
	publishBudget = 2 * time.Second
)

// RelayResult says where an event went.
type RelayResult struct {
	Forwarded bool
}

var _ application.UseCase[domcart.StockAdjustedEvent, *RelayResult] = (*RelayUseCase)(nil)

// RelayUseCase forwards stock adjustment events to an external sink for merchandising.
// Without a sink the event is only logged and counted.
type RelayUseCase struct {
	sink domoutbox.Publisher

	tracer       observability.Tracer
	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	eventCounter observability.Counter
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewRelayUseCase(sink domoutbox.Publisher, tel observability.Observability) *RelayUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &RelayUseCase{
		sink:         sink,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", serviceName)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		eventCounter: m.Counter(observability.MAdjustmentEvents),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

func (uc *RelayUseCase) Execute(ctx context.Context, evt domcart.StockAdjustedEvent) (_ *RelayResult, err error) {
	ctx, span := uc.tracer.Start(ctx, "Adjustment.Relay",
		attribute.String("use_case", useCaseRelay),
		attribute.String("variant", evt.Variant),
		attribute.Int("adjustments", len(evt.Adjustments)),
	)
	start := time.Now()
	outcome, status := "success", "OK"
	res := &RelayResult{}

	// An event-scoped logger already carries the publishing request's trace ids.
	logger := logctx.From(ctx)
	if logger == nil {
		logger = uc.log.With(observability.TraceFields(ctx)...)
	}
	logger = logger.With(
		observability.F("use_case", useCaseRelay),
		observability.F("variant", evt.Variant),
	)

	defer func() {
		lat := time.Since(start).Seconds()
		uc.reqCounter.Add(1, observability.L("use_case", useCaseRelay), observability.L("outcome", outcome))
		uc.durHistogram.Observe(lat, observability.L("use_case", useCaseRelay))
		uc.eventCounter.Add(1, observability.L("variant", evt.Variant), observability.L("outcome", outcome))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", lat),
			observability.F("forwarded", res.Forwarded),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err))
		}
		logger.Info("use_case_done", fields...)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		span.End()
	}()

	tally := evt.Adjustments.Tally()
	logger.Info("stock_adjusted",
		observability.F("session_id", evt.SessionID),
		observability.F("failed_items", evt.FailedItems),
		observability.F("out_of_stock", tally[domcart.ReasonOutOfStock]),
		observability.F("limited_stock", tally[domcart.ReasonLimitedStock]),
		observability.F("not_found", tally[domcart.ReasonNotFound]),
	)

	if uc.sink == nil {
		outcome, status = "logged", "NO_SINK"
		return res, nil
	}

	pctx, cancel := context.WithTimeout(ctx, publishBudget)
	defer cancel()
	pubStart := time.Now()
	perr := uc.sink.Publish(pctx, evt)
	extOutcome := "success"
	if perr != nil {
		extOutcome = "error"
	}
	uc.extCounter.Add(1,
		observability.L("peer", peerSink),
		observability.L("endpoint", evt.EventName()),
		observability.L("outcome", extOutcome),
	)
	uc.extHistogram.Observe(time.Since(pubStart).Seconds(),
		observability.L("peer", peerSink),
		observability.L("endpoint", evt.EventName()),
	)
	if perr != nil {
		outcome, status = "error", "SINK_PUBLISH_FAILED"
		return res, fmt.Errorf("%w: %w", ErrRelay, perr)
	}
	res.Forwarded = true
	return res, nil
}
