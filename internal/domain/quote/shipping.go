package quote

import (
	"context"
	"errors"
)

// ErrNoShipping is returned when no package or no rate could be quoted.
var ErrNoShipping = errors.New("quote: no shipping available")

// PackageLine is one cart line travelling in a package.
type PackageLine struct {
	ProductID   int64
	VariationID int64
	Quantity    int
	LineTotal   Money
}

// Package groups cart lines that ship together to one destination.
type Package struct {
	Contents     []PackageLine
	ContentsCost Money
	Destination  Address
}

// ItemCount is the number of units in the package.
func (p Package) ItemCount() int {
	n := 0
	for _, l := range p.Contents {
		n += l.Quantity
	}
	return n
}

// ShippingRate describes one selectable shipping option.
type ShippingRate struct {
	ID          string           `json:"id"`
	MethodID    string           `json:"method_id"`
	InstanceID  int              `json:"instance_id"`
	Label       string           `json:"label"`
	Cost        Money            `json:"cost"`
	Taxes       map[string]Money `json:"taxes"`
	ShippingTax Money            `json:"shipping_tax"`
}

// RateGroup holds the rates computed for one package.
type RateGroup struct {
	Package Package
	Rates   []ShippingRate
}

// ShippingEngine computes rates for the cart's packages.
type ShippingEngine interface {
	Calculate(ctx context.Context, packages []Package) ([]RateGroup, error)
}

// Flatten returns every rate of every group in package order.
func Flatten(groups []RateGroup) []ShippingRate {
	var out []ShippingRate
	for _, g := range groups {
		out = append(out, g.Rates...)
	}
	return out
}
