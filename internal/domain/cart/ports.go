package cart

import (
	"context"

	"github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
)

// CalculationMode selects how subscription lines are priced during totals and shipping.
type CalculationMode int

const (
	CalculationStandard CalculationMode = iota
	// CalculationRecurring prices subscriptions at their recurring amount, ignoring trials.
	CalculationRecurring
)

// Totals is the cart money summary after the last recalculation.
type Totals struct {
	Subtotal quote.Money
	Discount quote.Money
	Total    quote.Money
	Items    int
}

// CartStore is the externally owned mutable cart the pipeline drives for one request.
type CartStore interface {
	Empty(ctx context.Context) error
	// Add commits quantity units of item. A rejection wraps ErrAddRejected.
	Add(ctx context.Context, item LineItemRequest, quantity int) error
	ApplyCoupon(ctx context.Context, code string) error
	RecalculateTotals(ctx context.Context) error
	ShippingPackages(ctx context.Context) ([]quote.Package, error)
	NeedsShipping() bool
	SetShippingAddress(addr quote.Address)
	ShippingAddress() quote.Address
	SetCalculationMode(mode CalculationMode)
	Totals() Totals
}

// Catalog resolves product ids. Missing products yield ErrProductNotFound.
type Catalog interface {
	Lookup(ctx context.Context, id int64) (*Product, error)
}

// SessionStore is the per-session key/value store.
type SessionStore interface {
	// Get decodes the value under key into dst and reports whether it existed.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Authorizer decides whether the installation may serve quotes at all.
type Authorizer interface {
	Verified(ctx context.Context) bool
}

// Session keys written by the quote flows.
const (
	SessionChosenShippingMethods = "chosen_shipping_methods"
	SessionUserLocation          = "user_location"
	SessionUserLocationLat       = "user_location_lat"
	SessionUserLocationLng       = "user_location_lng"
)

// SessionProvider opens the session store of one client session.
type SessionProvider interface {
	Session(id string) SessionStore
}

// CouponSource resolves coupon codes. Unknown codes yield ErrCouponNotFound.
type CouponSource interface {
	Find(ctx context.Context, code string) (Coupon, error)
}
