package memory

import (
	"context"
	"fmt"
	"sync"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/config"
)

// CouponBook holds the coupons carts may apply, keyed by normalized code.
type CouponBook struct {
	mu      sync.RWMutex
	coupons map[string]domcart.Coupon
}

func NewCouponBook(coupons ...domcart.Coupon) *CouponBook {
	b := &CouponBook{coupons: make(map[string]domcart.Coupon, len(coupons))}
	for _, c := range coupons {
		b.coupons[domcart.NormalizeCode(c.Code)] = c
	}
	return b
}

func (b *CouponBook) Find(ctx context.Context, code string) (domcart.Coupon, error) {
	_ = ctx
	if b == nil {
		return domcart.Coupon{}, fmt.Errorf("%w: %q", domcart.ErrCouponNotFound, code)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.coupons[domcart.NormalizeCode(code)]
	if !ok {
		return domcart.Coupon{}, fmt.Errorf("%w: %q", domcart.ErrCouponNotFound, code)
	}
	return c, nil
}

func CouponsFromConfig(cfg []config.CouponConfig) ([]domcart.Coupon, error) {
	out := make([]domcart.Coupon, 0, len(cfg))
	for _, c := range cfg {
		var amount quote.Money
		if c.Amount != "" {
			v, err := quote.ParseMoney(c.Amount)
			if err != nil {
				return nil, fmt.Errorf("memory: coupon %s: %w", c.Code, err)
			}
			amount = v
		}
		out = append(out, domcart.Coupon{Code: c.Code, Percent: c.Percent, Amount: amount})
	}
	return out, nil
}
