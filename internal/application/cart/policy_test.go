package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
)

func TestInsertionPolicy(t *testing.T) {
	tests := []struct {
		name      string
		qty       int
		avail     domcart.ProductAvailability
		reject    bool
		kind      domcart.OutcomeKind
		reason    domcart.Reason
		committed int
		available int
		addQty    int
	}{
		{
			name:  "missing product is skipped as not found",
			qty:   2,
			avail: domcart.ProductAvailability{},
			kind:  domcart.OutcomeSkipped, reason: domcart.ReasonNotFound,
		},
		{
			name:  "not in stock is skipped",
			qty:   1,
			avail: domcart.ProductAvailability{Exists: true, InStock: false, StockQuantity: domcart.Qty(0)},
			kind:  domcart.OutcomeSkipped, reason: domcart.ReasonOutOfStock,
		},
		{
			name:  "flagged in stock with zero quantity is out of stock",
			qty:   3,
			avail: domcart.ProductAvailability{Exists: true, InStock: true, StockQuantity: domcart.Qty(0)},
			kind:  domcart.OutcomeSkipped, reason: domcart.ReasonOutOfStock,
		},
		{
			name:      "limited stock commits what exists",
			qty:       5,
			avail:     domcart.ProductAvailability{Exists: true, InStock: true, StockQuantity: domcart.Qty(2)},
			kind:      domcart.OutcomeAdjusted,
			reason:    domcart.ReasonLimitedStock,
			committed: 2, available: 2, addQty: 2,
		},
		{
			name:      "exact stock is committed in full",
			qty:       3,
			avail:     domcart.ProductAvailability{Exists: true, InStock: true, StockQuantity: domcart.Qty(3)},
			kind:      domcart.OutcomeCommitted,
			committed: 3, available: 3, addQty: 3,
		},
		{
			name:      "untracked stock is committed in full",
			qty:       100,
			avail:     domcart.ProductAvailability{Exists: true, InStock: true},
			kind:      domcart.OutcomeCommitted,
			committed: 100, available: 100, addQty: 100,
		},
		{
			name:   "rejected add fails",
			qty:    1,
			avail:  domcart.ProductAvailability{Exists: true, InStock: true},
			reject: true,
			kind:   domcart.OutcomeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newFakeCart(nil)
			if tt.reject {
				c.rejectIDs[7] = true
			}
			o := InsertionPolicy{}.Apply(context.Background(), c, item(7, tt.qty), tt.avail)

			assert.Equal(t, tt.kind, o.Kind)
			assert.Equal(t, tt.reason, o.Reason)
			assert.Equal(t, tt.committed, o.Committed)
			assert.Equal(t, tt.available, o.Available)
			assert.Equal(t, tt.qty, o.Requested)
			if tt.kind == domcart.OutcomeFailed {
				require.Error(t, o.Err)
				assert.ErrorIs(t, o.Err, domcart.ErrAddRejected)
				assert.Empty(t, c.adds)
				return
			}
			if tt.addQty == 0 {
				assert.Empty(t, c.adds, "skipped items must not touch the cart")
				return
			}
			require.Len(t, c.adds, 1)
			assert.Equal(t, tt.addQty, c.adds[0].qty)
		})
	}
}

func TestInsertionPolicy_AdjustedNeverCommitsZero(t *testing.T) {
	c := newFakeCart(nil)
	o := InsertionPolicy{}.Apply(context.Background(), c, item(1, 4),
		domcart.ProductAvailability{Exists: true, InStock: true, StockQuantity: domcart.Qty(-2)})

	assert.Equal(t, domcart.OutcomeSkipped, o.Kind)
	assert.Equal(t, domcart.ReasonOutOfStock, o.Reason)
	assert.Zero(t, o.Available)
}
