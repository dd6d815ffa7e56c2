package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	domquote "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseShipping  = "quote.shipping"
	variantShipping  = "shipping"
	shippingPeer     = "shipping_engine"
	shippingEndpoint = "calculate"
)

// ShippingQuoteUseCase rebuilds the cart at the submitted address and lists its shipping rates.
type ShippingQuoteUseCase struct {
	flow
	engine domquote.ShippingEngine
}

func NewShippingQuoteUseCase(deps Deps, engine domquote.ShippingEngine, tel observability.Observability) *ShippingQuoteUseCase {
	return &ShippingQuoteUseCase{flow: newFlow(deps, tel), engine: engine}
}

func (uc *ShippingQuoteUseCase) Execute(ctx context.Context, req Request) (_ *Response[domquote.ShippingRate], err error) {
	ctx, r := uc.begin(ctx, useCaseShipping, "ShippingQuote", req)
	defer func() { uc.end(r, err) }()

	if err := uc.authorize(ctx); err != nil {
		r.set(outcomeError, "FORBIDDEN")
		return nil, err
	}
	if req.Address == nil {
		r.set(outcomeError, "SHIPPING_ADDRESS_REQUIRED")
		return nil, apperr.InvalidRequest("shipping address is required")
	}
	req.Cart.SetShippingAddress(*req.Address)

	res, err := uc.rebuild(ctx, r, req)
	if err != nil {
		r.set(outcomeError, "REBUILD_FAILED")
		return nil, err
	}
	uc.applyCoupon(ctx, r, req)
	uc.applyCalculationMode(r, req, res)
	uc.storeLocation(ctx, r, req)

	packages, err := req.Cart.ShippingPackages(ctx)
	if err != nil {
		r.set(outcomeError, "PACKAGES_FAILED")
		return nil, apperr.Internal("failed to build shipping packages").Wrap(err)
	}

	calcStart := time.Now()
	groups, calcErr := uc.engine.Calculate(ctx, packages)
	uc.observeExternal(shippingPeer, shippingEndpoint, calcStart, calcErr)
	if calcErr != nil {
		r.set(outcomeError, "SHIPPING_ENGINE_FAILED")
		return nil, apperr.Internal("failed to calculate shipping").Wrap(calcErr)
	}
	rates := domquote.Flatten(groups)
	r.log.Info("shipping_calculated",
		observability.F("duration_ms", time.Since(calcStart).Milliseconds()),
		observability.F("packages", len(packages)),
		observability.F("rates", len(rates)),
	)
	r.span.SetAttributes(
		attribute.Int("shipping.packages", len(packages)),
		attribute.Int("shipping.rates", len(rates)),
	)

	uc.publishAdjustments(ctx, r, variantShipping, req, res)

	if len(packages) == 0 || len(rates) == 0 {
		required := req.Cart.NeedsShipping()
		r.set(outcomeDegraded, "NO_SHIPPING")
		noShip := apperr.NoShipping(required).Wrap(fmt.Errorf("%w: %d packages", domquote.ErrNoShipping, len(packages)))
		if len(res.Report) > 0 {
			noShip.With("stock_adjustments", res.Report).With("message", res.Report.Message())
		}
		return nil, noShip
	}

	if len(res.Report) > 0 || res.Failed > 0 {
		r.set(outcomeDegraded, "ITEMS_ADJUSTED")
	}
	return Shape(FieldShippingMethods, rates, res.Report), nil
}

// storeLocation keeps the non-empty geolocation hints on the session for location-aware rates.
func (uc *ShippingQuoteUseCase) storeLocation(ctx context.Context, r *run, req Request) {
	hints := []struct{ key, value string }{
		{domcart.SessionUserLocation, req.Location.Name},
		{domcart.SessionUserLocationLat, req.Location.Lat},
		{domcart.SessionUserLocationLng, req.Location.Lng},
	}
	for _, h := range hints {
		if v := strings.TrimSpace(h.value); v != "" {
			uc.remember(ctx, r, req, h.key, v)
		}
	}
}
