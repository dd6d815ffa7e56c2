package memory

import (
	"context"
	"fmt"
	"sync"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/config"
)

// Catalog is an in-process product catalog keyed by product or variation id.
type Catalog struct {
	mu       sync.RWMutex
	products map[int64]*domcart.Product
}

func NewCatalog(products ...*domcart.Product) *Catalog {
	c := &Catalog{products: make(map[int64]*domcart.Product, len(products))}
	for _, p := range products {
		if p != nil {
			c.products[p.ID] = cloneProduct(p)
		}
	}
	return c
}

func (c *Catalog) Lookup(ctx context.Context, id int64) (*domcart.Product, error) {
	_ = ctx

	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domcart.ErrProductNotFound, id)
	}
	return cloneProduct(p), nil
}

// ProductsFromConfig converts seeded products; prices must already be validated.
func ProductsFromConfig(seeds []config.ProductConfig) ([]*domcart.Product, error) {
	out := make([]*domcart.Product, 0, len(seeds))
	for _, s := range seeds {
		price, err := quote.ParseMoney(s.Price)
		if err != nil {
			return nil, fmt.Errorf("memory: product %d: %w", s.ID, err)
		}
		inStock := true
		if s.InStock != nil {
			inStock = *s.InStock
		}
		p := &domcart.Product{
			ID:           s.ID,
			ParentID:     s.ParentID,
			Name:         s.Name,
			Price:        price,
			InStock:      inStock,
			Virtual:      s.Virtual,
			Subscription: s.Subscription,
			TrialDays:    s.TrialDays,
		}
		if s.Stock != nil {
			p.StockQuantity = domcart.Qty(*s.Stock)
		}
		out = append(out, p)
	}
	return out, nil
}

func cloneProduct(p *domcart.Product) *domcart.Product {
	if p == nil {
		return nil
	}
	clone := *p
	if p.StockQuantity != nil {
		clone.StockQuantity = domcart.Qty(*p.StockQuantity)
	}
	return &clone
}
