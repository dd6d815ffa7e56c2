package quote

import (
	"context"
	"errors"

	appcart "github.com/salemaljebaly/mstore-api-optimizer/internal/application/cart"
	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	domoutbox "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/outbox"
	domquote "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
)

var errBoom = errors.New("boom")

type allow bool

func (a allow) Verified(context.Context) bool { return bool(a) }

type line struct {
	item domcart.LineItemRequest
	qty  int
}

type fakeCart struct {
	lines   []line
	coupons []string
	addr    domquote.Address
	mode    domcart.CalculationMode
	prices  map[int64]domquote.Money
	virtual map[int64]bool
}

func newFakeCart() *fakeCart {
	return &fakeCart{prices: map[int64]domquote.Money{}, virtual: map[int64]bool{}}
}

func (c *fakeCart) Empty(context.Context) error { c.lines = nil; return nil }
func (c *fakeCart) Add(_ context.Context, item domcart.LineItemRequest, qty int) error {
	c.lines = append(c.lines, line{item: item, qty: qty})
	return nil
}
func (c *fakeCart) ApplyCoupon(_ context.Context, code string) error {
	if code == "BAD" {
		return domcart.ErrCouponNotFound
	}
	c.coupons = append(c.coupons, code)
	return nil
}
func (c *fakeCart) RecalculateTotals(context.Context) error { return nil }
func (c *fakeCart) ShippingPackages(context.Context) ([]domquote.Package, error) {
	var pkg domquote.Package
	for _, l := range c.lines {
		if c.virtual[l.item.LookupID()] {
			continue
		}
		pkg.Contents = append(pkg.Contents, domquote.PackageLine{ProductID: l.item.ProductID, Quantity: l.qty})
	}
	if len(pkg.Contents) == 0 {
		return nil, nil
	}
	pkg.Destination = c.addr
	return []domquote.Package{pkg}, nil
}
func (c *fakeCart) NeedsShipping() bool {
	for _, l := range c.lines {
		if !c.virtual[l.item.LookupID()] {
			return true
		}
	}
	return false
}
func (c *fakeCart) SetShippingAddress(a domquote.Address)        { c.addr = a }
func (c *fakeCart) ShippingAddress() domquote.Address            { return c.addr }
func (c *fakeCart) SetCalculationMode(m domcart.CalculationMode) { c.mode = m }
func (c *fakeCart) Totals() domcart.Totals {
	var t domcart.Totals
	for _, l := range c.lines {
		t.Subtotal += c.prices[l.item.LookupID()] * domquote.Money(l.qty)
		t.Items += l.qty
	}
	t.Total = t.Subtotal
	return t
}

type fakeCatalog struct {
	products map[int64]*domcart.Product
	errs     map[int64]error
}

func (f fakeCatalog) Lookup(_ context.Context, id int64) (*domcart.Product, error) {
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, domcart.ErrProductNotFound
}

type fakeEngine struct {
	calls    int
	packages []domquote.Package
	rates    []domquote.ShippingRate
	err      error
}

func (e *fakeEngine) Calculate(_ context.Context, pkgs []domquote.Package) ([]domquote.RateGroup, error) {
	e.calls++
	e.packages = pkgs
	if e.err != nil {
		return nil, e.err
	}
	groups := make([]domquote.RateGroup, 0, len(pkgs))
	for _, p := range pkgs {
		groups = append(groups, domquote.RateGroup{Package: p, Rates: e.rates})
	}
	return groups, nil
}

type fakeRegistry struct {
	calls    int
	ctx      domquote.PaymentContext
	gateways []domquote.PaymentGateway
}

func (r *fakeRegistry) AvailableGateways(_ context.Context, pc domquote.PaymentContext) ([]domquote.PaymentGateway, error) {
	r.calls++
	r.ctx = pc
	return r.gateways, nil
}

type fakeSession map[string]any

func (s fakeSession) Get(_ context.Context, key string, _ any) (bool, error) {
	_, ok := s[key]
	return ok, nil
}
func (s fakeSession) Set(_ context.Context, key string, value any) error {
	s[key] = value
	return nil
}

type fakePublisher struct {
	events []domoutbox.Event
}

func (p *fakePublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.events = append(p.events, e)
	return nil
}

func product(id int64, inStock bool, qty *int) *domcart.Product {
	return &domcart.Product{ID: id, Name: "p", Price: 500, InStock: inStock, StockQuantity: qty}
}

func catalog(products ...*domcart.Product) fakeCatalog {
	cat := fakeCatalog{products: map[int64]*domcart.Product{}, errs: map[int64]error{}}
	for _, p := range products {
		cat.products[p.ID] = p
	}
	return cat
}

func rebuilder(products ...*domcart.Product) *appcart.RebuildUseCase {
	return appcart.NewRebuildUseCase(catalog(products...), nil)
}
