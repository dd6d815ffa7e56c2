package quote

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcart "github.com/salemaljebaly/mstore-api-optimizer/internal/application/cart"
	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	domquote "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/apperr"
)

var flatRate = domquote.ShippingRate{ID: "flat_rate:1", MethodID: "flat_rate", InstanceID: 1, Label: "Flat rate", Cost: 500}

func address() *domquote.Address {
	return &domquote.Address{FirstName: "Ada", City: "Riyadh", Country: "SA", Postcode: "12345"}
}

func TestShippingQuote_DegradedResponse(t *testing.T) {
	store := newFakeCart()
	engine := &fakeEngine{rates: []domquote.ShippingRate{flatRate}}
	pub := &fakePublisher{}
	uc := NewShippingQuoteUseCase(Deps{
		Authorizer: allow(true),
		Rebuilder:  rebuilder(product(1, true, domcart.Qty(10)), product(2, true, domcart.Qty(0))),
		Publisher:  pub,
	}, engine, nil)

	resp, err := uc.Execute(context.Background(), Request{
		SessionID: "s-1",
		Cart:      store,
		Items: []domcart.LineItemRequest{
			{ProductID: 1, Quantity: 3},
			{ProductID: 2, Quantity: 4},
		},
		Address: address(),
	})
	require.NoError(t, err)
	require.True(t, resp.Degraded())
	assert.Equal(t, 1, engine.calls)
	assert.Equal(t, "SA", engine.packages[0].Destination.Country)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"shipping_methods": [{"id":"flat_rate:1","method_id":"flat_rate","instance_id":1,"label":"Flat rate","cost":"5.00","taxes":null,"shipping_tax":"0.00"}],
		"stock_adjustments": [{"product_id":2,"requested":4,"available":0,"reason":"out_of_stock"}],
		"message": "1_items_out_of_stock"
	}`, string(raw))

	require.Len(t, pub.events, 1)
	ev := pub.events[0].(domcart.StockAdjustedEvent)
	assert.Equal(t, "s-1", ev.SessionID)
	assert.Equal(t, "shipping", ev.Variant)
}

func TestShippingQuote_CleanResponseIsBareList(t *testing.T) {
	uc := NewShippingQuoteUseCase(Deps{
		Authorizer: allow(true),
		Rebuilder:  rebuilder(product(1, true, nil)),
	}, &fakeEngine{rates: []domquote.ShippingRate{flatRate}}, nil)

	resp, err := uc.Execute(context.Background(), Request{
		Cart:    newFakeCart(),
		Items:   []domcart.LineItemRequest{{ProductID: 1, Quantity: 2}},
		Address: address(),
	})
	require.NoError(t, err)
	assert.False(t, resp.Degraded())

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "flat_rate:1", list[0]["id"])
}

func TestShippingQuote_Forbidden(t *testing.T) {
	store := newFakeCart()
	store.lines = []line{{item: domcart.LineItemRequest{ProductID: 9}, qty: 1}}
	engine := &fakeEngine{}
	uc := NewShippingQuoteUseCase(Deps{Authorizer: allow(false), Rebuilder: rebuilder()}, engine, nil)

	_, err := uc.Execute(context.Background(), Request{Cart: store, Address: address()})
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
	assert.Len(t, store.lines, 1, "cart untouched")
	assert.Zero(t, engine.calls)
}

func TestShippingQuote_AddressRequired(t *testing.T) {
	uc := NewShippingQuoteUseCase(Deps{Authorizer: allow(true), Rebuilder: rebuilder()}, &fakeEngine{}, nil)

	_, err := uc.Execute(context.Background(), Request{Cart: newFakeCart()})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidRequest))
}

func TestShippingQuote_NoShipping(t *testing.T) {
	t.Run("all items unknown so nothing needs shipping", func(t *testing.T) {
		engine := &fakeEngine{rates: []domquote.ShippingRate{flatRate}}
		uc := NewShippingQuoteUseCase(Deps{Authorizer: allow(true), Rebuilder: rebuilder()}, engine, nil)

		_, err := uc.Execute(context.Background(), Request{
			Cart:    newFakeCart(),
			Items:   []domcart.LineItemRequest{{ProductID: 404, Quantity: 1}},
			Address: address(),
		})
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindNoShipping, e.Kind)
		assert.Equal(t, false, e.Data["required_shipping"])
		assert.Equal(t, "1_items_not_found", e.Data["message"])
		assert.ErrorIs(t, err, domquote.ErrNoShipping)
		assert.Equal(t, 1, engine.calls)
	})

	t.Run("shippable cart but no rates", func(t *testing.T) {
		uc := NewShippingQuoteUseCase(Deps{
			Authorizer: allow(true),
			Rebuilder:  rebuilder(product(1, true, nil)),
		}, &fakeEngine{}, nil)

		_, err := uc.Execute(context.Background(), Request{
			Cart:    newFakeCart(),
			Items:   []domcart.LineItemRequest{{ProductID: 1, Quantity: 1}},
			Address: address(),
		})
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindNoShipping, e.Kind)
		assert.Equal(t, true, e.Data["required_shipping"])
		assert.NotContains(t, e.Data, "stock_adjustments")
	})
}

func TestShippingQuote_FailedItemsDoNotAbort(t *testing.T) {
	cat := catalog(product(1, true, nil))
	cat.errs[2] = errBoom
	pub := &fakePublisher{}
	uc := NewShippingQuoteUseCase(Deps{
		Authorizer: allow(true),
		Rebuilder:  appcart.NewRebuildUseCase(cat, nil),
		Publisher:  pub,
	}, &fakeEngine{rates: []domquote.ShippingRate{flatRate}}, nil)

	resp, err := uc.Execute(context.Background(), Request{
		Cart:    newFakeCart(),
		Items:   []domcart.LineItemRequest{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 1}},
		Address: address(),
	})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 1)
	assert.False(t, resp.Degraded(), "failed items are not reported as adjustments")

	require.Len(t, pub.events, 1)
	assert.Equal(t, 1, pub.events[0].(domcart.StockAdjustedEvent).FailedItems)
}

func TestShippingQuote_SideSteps(t *testing.T) {
	sub := product(7, true, nil)
	sub.Subscription = true
	sub.TrialDays = 14
	store := newFakeCart()
	session := fakeSession{}
	uc := NewShippingQuoteUseCase(Deps{
		Authorizer:    allow(true),
		Rebuilder:     rebuilder(sub),
		Subscriptions: true,
	}, &fakeEngine{rates: []domquote.ShippingRate{flatRate}}, nil)

	_, err := uc.Execute(context.Background(), Request{
		Cart:        store,
		Session:     session,
		Items:       []domcart.LineItemRequest{{ProductID: 7, Quantity: 1}},
		Address:     address(),
		Location:    Location{Name: "  Olaya St ", Lat: "24.69", Lng: ""},
		CouponCodes: []string{"WELCOME", "IGNORED"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"WELCOME"}, store.coupons)
	assert.Equal(t, domcart.CalculationRecurring, store.mode)
	assert.Equal(t, "Olaya St", session[domcart.SessionUserLocation])
	assert.Equal(t, "24.69", session[domcart.SessionUserLocationLat])
	assert.NotContains(t, session, domcart.SessionUserLocationLng)
}

func TestShippingQuote_SubscriptionModeNeedsFeature(t *testing.T) {
	sub := product(7, true, nil)
	sub.Subscription = true
	store := newFakeCart()
	uc := NewShippingQuoteUseCase(Deps{Authorizer: allow(true), Rebuilder: rebuilder(sub)},
		&fakeEngine{rates: []domquote.ShippingRate{flatRate}}, nil)

	_, err := uc.Execute(context.Background(), Request{
		Cart:    store,
		Items:   []domcart.LineItemRequest{{ProductID: 7, Quantity: 1}},
		Address: address(),
	})
	require.NoError(t, err)
	assert.Equal(t, domcart.CalculationStandard, store.mode)
}

func TestShippingQuote_BadCouponIsIgnored(t *testing.T) {
	uc := NewShippingQuoteUseCase(Deps{Authorizer: allow(true), Rebuilder: rebuilder(product(1, true, nil))},
		&fakeEngine{rates: []domquote.ShippingRate{flatRate}}, nil)

	_, err := uc.Execute(context.Background(), Request{
		Cart:        newFakeCart(),
		Items:       []domcart.LineItemRequest{{ProductID: 1, Quantity: 1}},
		Address:     address(),
		CouponCodes: []string{"BAD"},
	})
	assert.NoError(t, err)
}

func TestShippingQuote_EngineError(t *testing.T) {
	uc := NewShippingQuoteUseCase(Deps{Authorizer: allow(true), Rebuilder: rebuilder(product(1, true, nil))},
		&fakeEngine{err: errBoom}, nil)

	_, err := uc.Execute(context.Background(), Request{
		Cart:    newFakeCart(),
		Items:   []domcart.LineItemRequest{{ProductID: 1, Quantity: 1}},
		Address: address(),
	})
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
	assert.ErrorIs(t, err, errBoom)
}
