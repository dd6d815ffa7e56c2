package cart

import "errors"

var (
	ErrProductNotFound   = errors.New("cart: product not found")
	ErrAddRejected       = errors.New("cart: add rejected")
	ErrInvalidQuantity   = errors.New("cart: quantity must be greater than zero")
	ErrNotPurchasable    = errors.New("cart: product is not purchasable")
	ErrInsufficientStock = errors.New("cart: insufficient stock")
	ErrCouponNotFound    = errors.New("cart: coupon not found")
)
