package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	cartService      = "cart-service"
	useCaseRebuild   = "cart.rebuild"
	spanPrefix       = "UC."
	catalogPeer      = "catalog"
	catalogEndpoint  = "lookup"
	triggerExplicit  = "explicit"
	outcomeSuccess   = "success"
	outcomeDegraded  = "degraded"
	outcomeError     = "error"
	statusOK         = "OK"
	statusAdjusted   = "ITEMS_ADJUSTED"
	statusItemFailed = "ITEMS_FAILED"
)

var (
	ErrEmptyCart   = errors.New("cart: empty failed")
	ErrRecalculate = errors.New("cart: recalculate totals failed")
)

// RebuildInput carries the per-request collaborators the pipeline drives.
type RebuildInput struct {
	Cart  domcart.CartStore
	Bus   domcart.EventBus
	Items []domcart.LineItemRequest
}

// RebuildResult reports what happened to every submitted line.
type RebuildResult struct {
	Outcomes []domcart.InsertionOutcome
	Failed   int
	Report   domcart.StockAdjustmentReport
	// Products holds catalog snapshots by lookup id for lines whose product exists.
	Products map[int64]*domcart.Product
}

// HasSubscription reports whether any looked-up product is a subscription.
func (r *RebuildResult) HasSubscription() bool {
	if r == nil {
		return false
	}
	for _, p := range r.Products {
		if p != nil && p.Subscription {
			return true
		}
	}
	return false
}

// RebuildUseCase empties the cart and re-adds every line with recalculation listeners
// detached, then recalculates totals once.
type RebuildUseCase struct {
	catalog domcart.Catalog
	policy  InsertionPolicy
	hooks   []domcart.Hook
	tracer  observability.Tracer
	log     observability.Logger

	reqCounter    observability.Counter
	durHistogram  observability.Histogram
	extCounter    observability.Counter
	extHistogram  observability.Histogram
	adjustCounter observability.Counter
	recalcCounter observability.Counter
}

func NewRebuildUseCase(catalog domcart.Catalog, tel observability.Observability) *RebuildUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return &RebuildUseCase{
		catalog:       catalog,
		hooks:         domcart.RecalculationHooks,
		tracer:        tel.Tracer(),
		log:           tel.Logger().With(observability.F("service", cartService)),
		reqCounter:    metrics.Counter(observability.MUsecaseRequests),
		durHistogram:  metrics.Histogram(observability.MUsecaseDuration),
		extCounter:    metrics.Counter(observability.MExternalRequests),
		extHistogram:  metrics.Histogram(observability.MExternalRequestDuration),
		adjustCounter: metrics.Counter(observability.MStockAdjustments),
		recalcCounter: metrics.Counter(observability.MCartRecalculations),
	}
}

// Execute runs clear -> suppress -> policy per item -> restore -> single recalculation.
// Item problems never surface as err; err is reserved for cart store failures.
func (uc *RebuildUseCase) Execute(ctx context.Context, in RebuildInput) (_ *RebuildResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseRebuild))

	ctx, span := uc.tracer.Start(ctx, spanPrefix+"RebuildCart",
		attribute.String("use_case", useCaseRebuild),
		attribute.Int("cart.line_items", len(in.Items)),
	)
	start := time.Now()
	outcome, statusText := outcomeSuccess, statusOK
	result := &RebuildResult{
		Outcomes: make([]domcart.InsertionOutcome, 0, len(in.Items)),
		Products: make(map[int64]*domcart.Product, len(in.Items)),
	}

	defer func() {
		lat := time.Since(start).Seconds()
		if span != nil {
			span.SetAttributes(
				attribute.Int("cart.failed_items", result.Failed),
				attribute.Int("cart.adjusted_items", len(result.Report)),
			)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseRebuild),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat, observability.L("use_case", useCaseRebuild))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
			observability.F("line_items", len(in.Items)),
			observability.F("failed_items", result.Failed),
			observability.F("adjusted_items", len(result.Report)),
		}
		fields = append(fields, observability.SpanField(ctx)...)
		if msg := result.Report.Message(); msg != "" {
			fields = append(fields, observability.F("adjustments", msg))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if in.Cart == nil {
		outcome, statusText = outcomeError, "CART_MISSING"
		return result, fmt.Errorf("%w: no cart", ErrEmptyCart)
	}
	if err := in.Cart.Empty(ctx); err != nil {
		outcome, statusText = outcomeError, "CART_EMPTY_FAILED"
		return result, fmt.Errorf("%w: %w", ErrEmptyCart, err)
	}

	uc.insertAll(ctx, logger, in, result)
	span.AddEvent("cart.batch_inserted")

	uc.recalcCounter.Add(1, observability.L("trigger", triggerExplicit))
	if err := in.Cart.RecalculateTotals(ctx); err != nil {
		outcome, statusText = outcomeError, "RECALCULATE_FAILED"
		return result, fmt.Errorf("%w: %w", ErrRecalculate, err)
	}

	result.Report = domcart.NewReport(result.Outcomes)
	for _, adj := range result.Report {
		uc.adjustCounter.Add(1, observability.L("reason", adj.Reason.String()))
	}
	switch {
	case result.Failed > 0:
		outcome, statusText = outcomeDegraded, statusItemFailed
	case len(result.Report) > 0:
		outcome, statusText = outcomeDegraded, statusAdjusted
	}
	return result, nil
}

// insertAll applies the policy to every line in submission order inside a suppression scope.
func (uc *RebuildUseCase) insertAll(ctx context.Context, logger observability.Logger, in RebuildInput, result *RebuildResult) {
	_ = WithSuppressed(in.Bus, uc.hooks, func() error {
		for _, item := range in.Items {
			o := uc.insertOne(ctx, in.Cart, item, result)
			result.Outcomes = append(result.Outcomes, o)
			if o.Kind == domcart.OutcomeFailed {
				result.Failed++
				logger.Warn("line_item_failed",
					observability.F("product_id", item.ProductID),
					observability.F("variation_id", item.VariationID),
					observability.F("quantity", item.Quantity),
					observability.F("error", o.Err),
				)
				continue
			}
			logger.Debug("line_item_processed",
				observability.F("product_id", item.ProductID),
				observability.F("variation_id", item.VariationID),
				observability.F("outcome", o.Kind.String()),
				observability.F("committed", o.Committed),
			)
		}
		return nil
	})
}

func (uc *RebuildUseCase) insertOne(ctx context.Context, store domcart.CartStore, item domcart.LineItemRequest, result *RebuildResult) domcart.InsertionOutcome {
	product, err := uc.lookup(ctx, item.LookupID())
	switch {
	case errors.Is(err, domcart.ErrProductNotFound):
		return uc.policy.Apply(ctx, store, item, domcart.ProductAvailability{})
	case err != nil:
		return domcart.Failed(item, fmt.Errorf("lookup %d: %w", item.LookupID(), err))
	}
	result.Products[item.LookupID()] = product
	return uc.policy.Apply(ctx, store, item, product.Availability())
}

func (uc *RebuildUseCase) lookup(ctx context.Context, id int64) (*domcart.Product, error) {
	if id <= 0 {
		return nil, domcart.ErrProductNotFound
	}
	start := time.Now()
	product, err := uc.catalog.Lookup(ctx, id)
	out := outcomeSuccess
	switch {
	case errors.Is(err, domcart.ErrProductNotFound):
		out = "not_found"
	case err != nil:
		out = outcomeError
	case product == nil:
		out = "not_found"
		err = domcart.ErrProductNotFound
	}
	uc.extCounter.Add(1,
		observability.L("peer", catalogPeer),
		observability.L("endpoint", catalogEndpoint),
		observability.L("outcome", out),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", catalogPeer),
		observability.L("endpoint", catalogEndpoint),
	)
	return product, err
}
