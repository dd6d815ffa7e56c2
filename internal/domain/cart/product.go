package cart

import "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"

// ProductAvailability is a read-only stock snapshot for one line item, taken at processing time.
type ProductAvailability struct {
	Exists  bool
	InStock bool
	// StockQuantity is nil when stock is not tracked (unlimited).
	StockQuantity *int
}

// Product is what the catalog knows about a purchasable id.
type Product struct {
	ID            int64
	ParentID      int64
	Name          string
	Price         quote.Money
	InStock       bool
	StockQuantity *int
	Virtual       bool
	Subscription  bool
	TrialDays     int
}

// Availability projects the product onto the snapshot the insertion policy reads.
func (p *Product) Availability() ProductAvailability {
	if p == nil {
		return ProductAvailability{}
	}
	var qty *int
	if p.StockQuantity != nil {
		v := *p.StockQuantity
		qty = &v
	}
	return ProductAvailability{Exists: true, InStock: p.InStock, StockQuantity: qty}
}

// HasTrial reports whether the first billing period is free.
func (p *Product) HasTrial() bool {
	return p != nil && p.Subscription && p.TrialDays > 0
}

// Qty is a helper for building stock quantities.
func Qty(n int) *int { return &n }
