package cart

import (
	"context"
	"fmt"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
)

// InsertionPolicy decides how much of a line item to commit given its stock snapshot.
// It never aborts: every call yields exactly one outcome.
type InsertionPolicy struct{}

// Apply runs the stock rules in order and commits through store when they allow it.
func (InsertionPolicy) Apply(
	ctx context.Context,
	store domcart.CartStore,
	item domcart.LineItemRequest,
	avail domcart.ProductAvailability,
) domcart.InsertionOutcome {
	if !avail.Exists {
		return domcart.Skipped(item, domcart.ReasonNotFound, 0)
	}
	if !avail.InStock {
		return domcart.Skipped(item, domcart.ReasonOutOfStock, stockOrZero(avail))
	}

	if avail.StockQuantity != nil && *avail.StockQuantity < item.Quantity {
		stock := *avail.StockQuantity
		// Zero stock is out of stock, never Adjusted(_, 0).
		if stock <= 0 {
			return domcart.Skipped(item, domcart.ReasonOutOfStock, 0)
		}
		if err := store.Add(ctx, item, stock); err != nil {
			return domcart.Failed(item, fmt.Errorf("commit %d of %d: %w", stock, item.Quantity, err))
		}
		return domcart.Adjusted(item, stock)
	}

	if err := store.Add(ctx, item, item.Quantity); err != nil {
		return domcart.Failed(item, fmt.Errorf("commit %d: %w", item.Quantity, err))
	}
	return domcart.Committed(item, item.Quantity)
}

func stockOrZero(avail domcart.ProductAvailability) int {
	if avail.StockQuantity == nil || *avail.StockQuantity < 0 {
		return 0
	}
	return *avail.StockQuantity
}
