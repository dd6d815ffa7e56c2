package mysql

import (
	"database/sql"

	"gorm.io/gorm"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
)

// ProductModel maps the products table. Prices are stored in minor units.
type ProductModel struct {
	gorm.Model
	ParentID      uint
	Name          string
	PriceCents    int64
	InStock       bool          `gorm:"default:true"`
	StockQuantity sql.NullInt64 // NULL when stock is not managed
	Virtual       bool
	Subscription  bool
	TrialDays     int
}

func (ProductModel) TableName() string {
	return "products"
}

// CouponModel maps the coupons table.
type CouponModel struct {
	gorm.Model
	Code        string `gorm:"uniqueIndex;size:64"`
	Percent     int
	AmountCents int64
}

func (CouponModel) TableName() string {
	return "coupons"
}

func toDomainProduct(m *ProductModel) *domcart.Product {
	p := &domcart.Product{
		ID:           int64(m.ID),
		ParentID:     int64(m.ParentID),
		Name:         m.Name,
		Price:        quote.Money(m.PriceCents),
		InStock:      m.InStock,
		Virtual:      m.Virtual,
		Subscription: m.Subscription,
		TrialDays:    m.TrialDays,
	}
	if m.StockQuantity.Valid {
		p.StockQuantity = domcart.Qty(int(m.StockQuantity.Int64))
	}
	return p
}

func toDomainCoupon(m *CouponModel) domcart.Coupon {
	return domcart.Coupon{
		Code:    domcart.NormalizeCode(m.Code),
		Percent: m.Percent,
		Amount:  quote.Money(m.AmountCents),
	}
}
