package cart

import (
	"strings"

	"github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
)

// Coupon is a cart-level discount: a percentage of the subtotal plus a fixed amount.
type Coupon struct {
	Code    string
	Percent int
	Amount  quote.Money
}

// Discount is what the coupon takes off subtotal, never more than subtotal.
func (c Coupon) Discount(subtotal quote.Money) quote.Money {
	if subtotal <= 0 {
		return 0
	}
	d := subtotal.Percent(int64(c.Percent)*100) + c.Amount
	if d > subtotal {
		return subtotal
	}
	return d
}

// NormalizeCode is the lookup form of a coupon code.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
