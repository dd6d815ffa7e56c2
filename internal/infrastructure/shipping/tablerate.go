package shipping

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/config"
)

// taxRateKey is the rate id shipping taxes are reported under.
const taxRateKey = "1"

type method struct {
	methodID   string
	instanceID int
	label      string
	cost       quote.Money
	perItem    quote.Money
	freeAbove  quote.Money
	taxBps     int64
}

type zone struct {
	name      string
	countries map[string]struct{}
	methods   []method
}

// TableRate prices packages from configured zones: the first zone listing the destination
// country wins, otherwise the first zone with no countries.
type TableRate struct {
	zones []zone
}

func NewTableRate(cfg config.ShippingConfig) (*TableRate, error) {
	t := &TableRate{zones: make([]zone, 0, len(cfg.Zones))}
	for _, zc := range cfg.Zones {
		z := zone{name: zc.Name, countries: make(map[string]struct{}, len(zc.Countries))}
		for _, c := range zc.Countries {
			z.countries[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
		}
		for _, mc := range zc.Methods {
			m, err := newMethod(mc)
			if err != nil {
				return nil, fmt.Errorf("shipping: zone %s: %w", zc.Name, err)
			}
			z.methods = append(z.methods, m)
		}
		t.zones = append(t.zones, z)
	}
	return t, nil
}

func newMethod(mc config.MethodConfig) (method, error) {
	m := method{methodID: mc.MethodID, instanceID: mc.InstanceID, label: mc.Label, taxBps: mc.TaxBps}
	for _, f := range []struct {
		dst *quote.Money
		raw string
	}{{&m.cost, mc.Cost}, {&m.perItem, mc.PerItem}, {&m.freeAbove, mc.FreeAbove}} {
		if f.raw == "" {
			continue
		}
		v, err := quote.ParseMoney(f.raw)
		if err != nil {
			return method{}, fmt.Errorf("method %s: %w", mc.MethodID, err)
		}
		*f.dst = v
	}
	return m, nil
}

// Calculate returns one rate group per package, in package order.
func (t *TableRate) Calculate(ctx context.Context, packages []quote.Package) ([]quote.RateGroup, error) {
	groups := make([]quote.RateGroup, 0, len(packages))
	for _, pkg := range packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		groups = append(groups, quote.RateGroup{Package: pkg, Rates: t.rates(pkg)})
	}
	return groups, nil
}

func (t *TableRate) rates(pkg quote.Package) []quote.ShippingRate {
	z := t.match(pkg.Destination.CountryCode())
	if z == nil {
		return nil
	}
	rates := make([]quote.ShippingRate, 0, len(z.methods))
	for _, m := range z.methods {
		rates = append(rates, m.rate(pkg))
	}
	return rates
}

func (t *TableRate) match(country string) *zone {
	var fallback *zone
	for i := range t.zones {
		z := &t.zones[i]
		if len(z.countries) == 0 {
			if fallback == nil {
				fallback = z
			}
			continue
		}
		if _, ok := z.countries[country]; ok && country != "" {
			return z
		}
	}
	return fallback
}

func (m method) rate(pkg quote.Package) quote.ShippingRate {
	cost := m.cost + m.perItem*quote.Money(pkg.ItemCount())
	if m.freeAbove > 0 && pkg.ContentsCost >= m.freeAbove {
		cost = 0
	}
	r := quote.ShippingRate{
		ID:         m.methodID + ":" + strconv.Itoa(m.instanceID),
		MethodID:   m.methodID,
		InstanceID: m.instanceID,
		Label:      m.label,
		Cost:       cost,
		Taxes:      map[string]quote.Money{},
	}
	if m.taxBps > 0 && cost > 0 {
		tax := cost.Percent(m.taxBps)
		r.Taxes[taxRateKey] = tax
		r.ShippingTax = tax
	}
	return r
}
