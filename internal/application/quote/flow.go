package quote

import (
	"context"
	"strings"
	"time"

	appcart "github.com/salemaljebaly/mstore-api-optimizer/internal/application/cart"
	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	domoutbox "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/outbox"
	domquote "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability/logctx"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	quoteService    = "quote-service"
	spanPrefix      = "UC."
	publishPeer     = "outbox"
	publishTimeout  = 300 * time.Millisecond
	outcomeSuccess  = "success"
	outcomeDegraded = "degraded"
	outcomeError    = "error"
)

// Rebuilder is the cart rebuild step both quote variants share.
type Rebuilder interface {
	Execute(ctx context.Context, in appcart.RebuildInput) (*appcart.RebuildResult, error)
}

// Location is the geolocation hint some clients send alongside the shipping address.
type Location struct {
	Name string
	Lat  string
	Lng  string
}

// Request is one quote call: the per-session collaborators plus the decoded body.
type Request struct {
	SessionID string
	Cart      domcart.CartStore
	Bus       domcart.EventBus
	Session   domcart.SessionStore
	Items     []domcart.LineItemRequest
	// Address is nil when the client sent no shipping block.
	Address         *domquote.Address
	Location        Location
	CouponCodes     []string
	ShippingMethods []string
}

// Deps are the collaborators shared by both quote variants.
type Deps struct {
	Authorizer    domcart.Authorizer
	Rebuilder     Rebuilder
	Publisher     domoutbox.Publisher
	Subscriptions bool
}

// flow holds what both variants need: authorization, rebuild, best-effort side steps and telemetry.
type flow struct {
	Deps
	tracer observability.Tracer
	log    observability.Logger

	reqCounter   observability.Counter
	durHistogram observability.Histogram
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func newFlow(deps Deps, tel observability.Observability) flow {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return flow{
		Deps:         deps,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", quoteService)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// run tracks one use case execution and reports it once when finished.
type run struct {
	useCase    string
	span       trace.Span
	ctx        context.Context
	log        observability.Logger
	start      time.Time
	outcome    string
	statusText string
	extra      []observability.Field
}

func (f *flow) begin(ctx context.Context, useCase, spanName string, req Request) (context.Context, *run) {
	logger := logctx.FromOr(ctx, f.log).With(observability.F("use_case", useCase))
	if req.SessionID != "" {
		logger = logger.With(observability.F("session_id", req.SessionID))
	}
	ctx, span := f.tracer.Start(ctx, spanPrefix+spanName,
		attribute.String("use_case", useCase),
		attribute.Int("cart.line_items", len(req.Items)),
	)
	return ctx, &run{
		useCase:    useCase,
		span:       span,
		ctx:        ctx,
		log:        logger,
		start:      time.Now(),
		outcome:    outcomeSuccess,
		statusText: "OK",
	}
}

func (r *run) set(outcome, statusText string) {
	r.outcome, r.statusText = outcome, statusText
}

func (f *flow) end(r *run, err error) {
	lat := time.Since(r.start).Seconds()
	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.statusText)
		} else {
			r.span.SetStatus(codes.Ok, r.statusText)
		}
		r.span.End()
	}

	f.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	f.durHistogram.Observe(lat, observability.L("use_case", r.useCase))

	fields := []observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.statusText),
		observability.F("latency_seconds", lat),
	}
	fields = append(fields, observability.SpanField(r.ctx)...)
	fields = append(fields, r.extra...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.log.Info("use_case_done", fields...)
}

func (f *flow) authorize(ctx context.Context) error {
	if f.Authorizer == nil || !f.Authorizer.Verified(ctx) {
		return apperr.Forbidden("")
	}
	return nil
}

func (f *flow) rebuild(ctx context.Context, r *run, req Request) (*appcart.RebuildResult, error) {
	start := time.Now()
	res, err := f.Rebuilder.Execute(ctx, appcart.RebuildInput{Cart: req.Cart, Bus: req.Bus, Items: req.Items})
	if err != nil {
		return nil, apperr.Internal("failed to rebuild cart").Wrap(err)
	}
	r.log.Info("cart_rebuilt",
		observability.F("duration_ms", time.Since(start).Milliseconds()),
		observability.F("line_items", len(req.Items)),
		observability.F("failed_items", res.Failed),
		observability.F("adjusted_items", len(res.Report)),
	)
	r.extra = append(r.extra,
		observability.F("failed_items", res.Failed),
		observability.F("adjusted_items", len(res.Report)),
	)
	return res, nil
}

// applyCoupon applies the first submitted code. A rejected coupon never fails the quote.
func (f *flow) applyCoupon(ctx context.Context, r *run, req Request) {
	if len(req.CouponCodes) == 0 {
		return
	}
	code := strings.TrimSpace(req.CouponCodes[0])
	if code == "" {
		return
	}
	if err := req.Cart.ApplyCoupon(ctx, code); err != nil {
		r.log.Warn("coupon_apply_failed",
			observability.F("coupon", code),
			observability.F("error", err),
		)
	}
}

// applyCalculationMode switches to recurring totals when a subscription is in the cart.
func (f *flow) applyCalculationMode(r *run, req Request, res *appcart.RebuildResult) {
	if !f.Subscriptions || !res.HasSubscription() {
		return
	}
	req.Cart.SetCalculationMode(domcart.CalculationRecurring)
	r.span.AddEvent("cart.recurring_totals")
}

// remember writes value under key; failures are logged and ignored.
func (f *flow) remember(ctx context.Context, r *run, req Request, key string, value any) {
	if req.Session == nil {
		return
	}
	if err := req.Session.Set(ctx, key, value); err != nil {
		r.log.Warn("session_write_failed",
			observability.F("key", key),
			observability.F("error", err),
		)
	}
}

// publishAdjustments emits a stock adjusted event when the rebuild lost or trimmed items.
func (f *flow) publishAdjustments(ctx context.Context, r *run, variant string, req Request, res *appcart.RebuildResult) {
	if f.Publisher == nil || (len(res.Report) == 0 && res.Failed == 0) {
		return
	}
	event := domcart.NewStockAdjustedEvent(req.SessionID, variant, res.Report, res.Failed)

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	pubStart := time.Now()
	pubOutcome := outcomeSuccess

	err := f.Publisher.Publish(pubCtx, event)
	switch {
	case err != nil:
		pubOutcome = outcomeError
	case pubCtx.Err() != nil:
		pubOutcome = "canceled"
		err = pubCtx.Err()
	}
	if err != nil {
		r.extra = append(r.extra, observability.F("event_publish_error", err.Error()))
	}

	f.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", event.EventName()),
		observability.L("outcome", pubOutcome),
	)
	f.extHistogram.Observe(time.Since(pubStart).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", event.EventName()),
	)
}

// observeExternal records one call to a quote collaborator.
func (f *flow) observeExternal(peer, endpoint string, start time.Time, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	f.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	f.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}
