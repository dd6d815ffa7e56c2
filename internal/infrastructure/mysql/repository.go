package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
)

// Open connects to MySQL. The gorm logger is silenced; queries are observed through spans
// and the catalog breaker instead.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the catalog tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&ProductModel{}, &CouponModel{})
}

// Catalog reads products from MySQL.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Lookup(ctx context.Context, id int64) (*domcart.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", domcart.ErrProductNotFound, id)
	}
	var m ProductModel
	err := c.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", domcart.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("mysql: lookup product %d: %w", id, err)
	}
	return toDomainProduct(&m), nil
}

// Coupons reads coupons from MySQL by normalized code.
type Coupons struct {
	db *gorm.DB
}

func NewCoupons(db *gorm.DB) *Coupons {
	return &Coupons{db: db}
}

func (c *Coupons) Find(ctx context.Context, code string) (domcart.Coupon, error) {
	key := domcart.NormalizeCode(code)
	if key == "" {
		return domcart.Coupon{}, fmt.Errorf("%w: %q", domcart.ErrCouponNotFound, code)
	}
	var m CouponModel
	err := c.db.WithContext(ctx).Where("code = ?", key).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domcart.Coupon{}, fmt.Errorf("%w: %q", domcart.ErrCouponNotFound, code)
	}
	if err != nil {
		return domcart.Coupon{}, fmt.Errorf("mysql: find coupon %q: %w", code, err)
	}
	return toDomainCoupon(&m), nil
}
