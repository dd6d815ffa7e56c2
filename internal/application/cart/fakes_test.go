package cart

import (
	"context"
	"errors"
	"sync"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
)

var errBoom = errors.New("boom")

type fakeBus struct {
	mu   sync.Mutex
	regs map[domcart.Hook]domcart.Registration
	log  []string
}

func newFakeBus() *fakeBus {
	return &fakeBus{regs: map[domcart.Hook]domcart.Registration{}}
}

func (b *fakeBus) Detach(h domcart.Hook) domcart.Registration {
	b.mu.Lock()
	defer b.mu.Unlock()
	reg := b.regs[h]
	delete(b.regs, h)
	b.log = append(b.log, "detach:"+string(h))
	return reg
}

func (b *fakeBus) Attach(h domcart.Hook, reg domcart.Registration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if reg == nil {
		delete(b.regs, h)
	} else {
		b.regs[h] = reg
	}
	b.log = append(b.log, "attach:"+string(h))
}

func (b *fakeBus) Fire(ctx context.Context, e domcart.HookEvent) {
	b.mu.Lock()
	reg := append(domcart.Registration(nil), b.regs[e.Hook]...)
	b.mu.Unlock()
	for _, l := range reg {
		_ = l(ctx, e)
	}
}

func (b *fakeBus) count(h domcart.Hook) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.regs[h])
}

type addCall struct {
	id  int64
	qty int
}

type fakeCart struct {
	bus        *fakeBus
	adds       []addCall
	rejectIDs  map[int64]bool
	emptyErr   error
	recalcErr  error
	recalcs    int
	emptied    int
	listenerHi int
	addr       quote.Address
	mode       domcart.CalculationMode
}

func newFakeCart(bus *fakeBus) *fakeCart {
	return &fakeCart{bus: bus, rejectIDs: map[int64]bool{}}
}

func (c *fakeCart) Empty(context.Context) error {
	c.emptied++
	c.adds = nil
	return c.emptyErr
}

func (c *fakeCart) Add(ctx context.Context, item domcart.LineItemRequest, qty int) error {
	if c.rejectIDs[item.LookupID()] {
		return domcart.ErrAddRejected
	}
	c.adds = append(c.adds, addCall{id: item.LookupID(), qty: qty})
	if c.bus != nil {
		c.bus.Fire(ctx, domcart.HookEvent{Hook: domcart.HookItemAdded, Cart: c, ProductID: item.ProductID, Quantity: qty})
	}
	return nil
}

func (c *fakeCart) ApplyCoupon(context.Context, string) error { return nil }

func (c *fakeCart) RecalculateTotals(context.Context) error {
	c.recalcs++
	return c.recalcErr
}

func (c *fakeCart) ShippingPackages(context.Context) ([]quote.Package, error) { return nil, nil }
func (c *fakeCart) NeedsShipping() bool                                       { return true }
func (c *fakeCart) SetShippingAddress(a quote.Address)                        { c.addr = a }
func (c *fakeCart) ShippingAddress() quote.Address                            { return c.addr }
func (c *fakeCart) SetCalculationMode(m domcart.CalculationMode)              { c.mode = m }
func (c *fakeCart) Totals() domcart.Totals                                    { return domcart.Totals{Items: len(c.adds)} }

type fakeCatalog struct {
	products map[int64]*domcart.Product
	errs     map[int64]error
	lookups  []int64
}

func (f *fakeCatalog) Lookup(_ context.Context, id int64) (*domcart.Product, error) {
	f.lookups = append(f.lookups, id)
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, domcart.ErrProductNotFound
	}
	return p, nil
}

func item(id int64, qty int) domcart.LineItemRequest {
	return domcart.LineItemRequest{ProductID: id, Quantity: qty}
}
