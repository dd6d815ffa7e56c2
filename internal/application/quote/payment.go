package quote

import (
	"context"
	"strings"
	"time"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	domquote "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCasePayment  = "quote.payment"
	variantPayment  = "payment"
	paymentPeer     = "payment_registry"
	paymentEndpoint = "available_gateways"
)

// PaymentOptionsUseCase rebuilds the cart and lists the payment gateways available for it.
// Unlike the shipping variant, any Failed line item fails the whole request.
type PaymentOptionsUseCase struct {
	flow
	registry domquote.PaymentRegistry
}

func NewPaymentOptionsUseCase(deps Deps, registry domquote.PaymentRegistry, tel observability.Observability) *PaymentOptionsUseCase {
	return &PaymentOptionsUseCase{flow: newFlow(deps, tel), registry: registry}
}

func (uc *PaymentOptionsUseCase) Execute(ctx context.Context, req Request) (_ *Response[domquote.PaymentGateway], err error) {
	ctx, r := uc.begin(ctx, useCasePayment, "PaymentOptions", req)
	defer func() { uc.end(r, err) }()

	if err := uc.authorize(ctx); err != nil {
		r.set(outcomeError, "FORBIDDEN")
		return nil, err
	}
	if req.Address != nil {
		req.Cart.SetShippingAddress(*req.Address)
	}

	res, err := uc.rebuild(ctx, r, req)
	if err != nil {
		r.set(outcomeError, "REBUILD_FAILED")
		return nil, err
	}
	uc.publishAdjustments(ctx, r, variantPayment, req, res)
	if res.Failed > 0 {
		r.set(outcomeError, "ITEMS_FAILED")
		return nil, apperr.InvalidItem(res.Failed)
	}

	uc.applyCoupon(ctx, r, req)
	chosen := uc.storeChosenMethods(ctx, r, req)

	totals := req.Cart.Totals()
	pc := domquote.PaymentContext{
		Country:               req.Cart.ShippingAddress().CountryCode(),
		Subtotal:              totals.Subtotal,
		Total:                 totals.Total,
		NeedsShipping:         req.Cart.NeedsShipping(),
		ChosenShippingMethods: chosen,
	}

	listStart := time.Now()
	gateways, listErr := uc.registry.AvailableGateways(ctx, pc)
	uc.observeExternal(paymentPeer, paymentEndpoint, listStart, listErr)
	if listErr != nil {
		r.set(outcomeError, "PAYMENT_REGISTRY_FAILED")
		return nil, apperr.Internal("failed to list payment gateways").Wrap(listErr)
	}
	r.log.Info("payment_gateways_listed",
		observability.F("duration_ms", time.Since(listStart).Milliseconds()),
		observability.F("gateways", len(gateways)),
		observability.F("country", pc.Country),
	)
	r.span.SetAttributes(attribute.Int("payment.gateways", len(gateways)))

	if len(res.Report) > 0 {
		r.set(outcomeDegraded, "ITEMS_ADJUSTED")
	}
	return Shape(FieldPaymentMethods, gateways, res.Report), nil
}

// storeChosenMethods records the client's selected shipping method ids on the session.
func (uc *PaymentOptionsUseCase) storeChosenMethods(ctx context.Context, r *run, req Request) []string {
	var chosen []string
	for _, m := range req.ShippingMethods {
		if m = strings.TrimSpace(m); m != "" {
			chosen = append(chosen, m)
		}
	}
	if len(chosen) == 0 {
		return nil
	}
	uc.remember(ctx, r, req, domcart.SessionChosenShippingMethods, chosen)
	return chosen
}
