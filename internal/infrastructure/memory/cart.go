package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
)

type cartLine struct {
	key     string
	item    domcart.LineItemRequest
	product *domcart.Product
	qty     int
}

// Cart is an in-process CartStore. It validates adds against the catalog on its own and
// fires cart hooks through its dispatcher after every mutation.
type Cart struct {
	mu         sync.Mutex
	catalog    domcart.Catalog
	coupons    domcart.CouponSource
	dispatcher domcart.Dispatcher

	lines   []*cartLine
	applied []domcart.Coupon
	addr    quote.Address
	mode    domcart.CalculationMode
	totals  domcart.Totals
}

func NewCart(catalog domcart.Catalog, coupons domcart.CouponSource, dispatcher domcart.Dispatcher) *Cart {
	return &Cart{catalog: catalog, coupons: coupons, dispatcher: dispatcher}
}

func (c *Cart) Empty(ctx context.Context) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.applied = nil
	c.totals = domcart.Totals{}
	return nil
}

// Add merges quantity into the line with the same product, variation and attributes.
func (c *Cart) Add(ctx context.Context, item domcart.LineItemRequest, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %w", domcart.ErrAddRejected, domcart.ErrInvalidQuantity)
	}
	product, err := c.catalog.Lookup(ctx, item.LookupID())
	if err != nil {
		return fmt.Errorf("%w: %w", domcart.ErrAddRejected, err)
	}
	if !product.InStock {
		return fmt.Errorf("%w: %w", domcart.ErrAddRejected, domcart.ErrNotPurchasable)
	}

	c.mu.Lock()
	key := lineKey(item)
	line := c.find(key)
	held := c.heldLocked(item.LookupID())
	if product.StockQuantity != nil && held+quantity > *product.StockQuantity {
		c.mu.Unlock()
		return fmt.Errorf("%w: %w: have %d, want %d", domcart.ErrAddRejected, domcart.ErrInsufficientStock,
			*product.StockQuantity, held+quantity)
	}
	if line == nil {
		c.lines = append(c.lines, &cartLine{key: key, item: item, product: product, qty: quantity})
	} else {
		line.qty += quantity
		line.product = product
	}
	c.mu.Unlock()

	c.fire(ctx, domcart.HookEvent{
		Hook:        domcart.HookItemAdded,
		ProductID:   item.ProductID,
		VariationID: item.VariationID,
		Quantity:    quantity,
	})
	return nil
}

func (c *Cart) ApplyCoupon(ctx context.Context, code string) error {
	if c.coupons == nil {
		return fmt.Errorf("%w: %q", domcart.ErrCouponNotFound, code)
	}
	coupon, err := c.coupons.Find(ctx, code)
	if err != nil {
		return err
	}
	c.mu.Lock()
	for _, a := range c.applied {
		if domcart.NormalizeCode(a.Code) == domcart.NormalizeCode(coupon.Code) {
			c.mu.Unlock()
			return nil
		}
	}
	c.applied = append(c.applied, coupon)
	c.mu.Unlock()

	c.fire(ctx, domcart.HookEvent{Hook: domcart.HookUpdated})
	return nil
}

// RecalculateTotals prices every line. In standard mode a subscription with a trial is free
// up front; recurring mode prices it at its recurring amount.
func (c *Cart) RecalculateTotals(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var t domcart.Totals
	for _, l := range c.lines {
		t.Subtotal += c.lineTotalLocked(l)
		t.Items += l.qty
	}
	for _, cp := range c.applied {
		t.Discount += cp.Discount(t.Subtotal - t.Discount)
	}
	t.Total = t.Subtotal - t.Discount
	c.totals = t
	return nil
}

// ShippingPackages returns one package of every shippable line, or none.
func (c *Cart) ShippingPackages(ctx context.Context) ([]quote.Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	pkg := quote.Package{Destination: c.addr}
	for _, l := range c.lines {
		if !c.shipsLocked(l) {
			continue
		}
		total := l.product.Price * quote.Money(l.qty)
		pkg.Contents = append(pkg.Contents, quote.PackageLine{
			ProductID:   l.item.ProductID,
			VariationID: l.item.VariationID,
			Quantity:    l.qty,
			LineTotal:   total,
		})
		pkg.ContentsCost += total
	}
	if len(pkg.Contents) == 0 {
		return nil, nil
	}
	return []quote.Package{pkg}, nil
}

func (c *Cart) NeedsShipping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.lines {
		if !l.product.Virtual {
			return true
		}
	}
	return false
}

func (c *Cart) SetShippingAddress(addr quote.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addr = addr
}

func (c *Cart) ShippingAddress() quote.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

func (c *Cart) SetCalculationMode(mode domcart.CalculationMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
}

func (c *Cart) Totals() domcart.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}

// Quantity is the units held for a lookup id across all lines.
func (c *Cart) Quantity(id int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heldLocked(id)
}

// Lines is the number of distinct cart lines.
func (c *Cart) Lines() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func (c *Cart) fire(ctx context.Context, e domcart.HookEvent) {
	if c.dispatcher == nil {
		return
	}
	e.Cart = c
	c.dispatcher.Fire(ctx, e)
}

func (c *Cart) find(key string) *cartLine {
	for _, l := range c.lines {
		if l.key == key {
			return l
		}
	}
	return nil
}

func (c *Cart) heldLocked(id int64) int {
	n := 0
	for _, l := range c.lines {
		if l.item.LookupID() == id {
			n += l.qty
		}
	}
	return n
}

func (c *Cart) trialLocked(l *cartLine) bool {
	return c.mode == domcart.CalculationStandard && l.product.HasTrial()
}

func (c *Cart) lineTotalLocked(l *cartLine) quote.Money {
	if c.trialLocked(l) {
		return 0
	}
	return l.product.Price * quote.Money(l.qty)
}

func (c *Cart) shipsLocked(l *cartLine) bool {
	return !l.product.Virtual && !c.trialLocked(l)
}

func lineKey(item domcart.LineItemRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d", item.ProductID, item.VariationID)
	for _, k := range slices.Sorted(maps.Keys(item.Attributes)) {
		fmt.Fprintf(&b, "|%s=%s", k, item.Attributes[k])
	}
	return b.String()
}
