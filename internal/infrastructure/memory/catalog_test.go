package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/config"
)

func TestCatalog_LookupReturnsCopies(t *testing.T) {
	c := NewCatalog(&domcart.Product{ID: 1, InStock: true, StockQuantity: domcart.Qty(2)})
	ctx := context.Background()

	p, err := c.Lookup(ctx, 1)
	require.NoError(t, err)
	*p.StockQuantity = 99
	p.InStock = false

	again, err := c.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, *again.StockQuantity)
	assert.True(t, again.InStock)

	_, err = c.Lookup(ctx, 2)
	assert.ErrorIs(t, err, domcart.ErrProductNotFound)
}

func TestProductsFromConfig(t *testing.T) {
	no := false
	products, err := ProductsFromConfig([]config.ProductConfig{
		{ID: 1, Name: "Mug", Price: "12.50", Stock: domcart.Qty(3)},
		{ID: 2, Name: "Old", Price: "1", InStock: &no},
	})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, quote.Money(1250), products[0].Price)
	assert.True(t, products[0].InStock)
	assert.Equal(t, 3, *products[0].StockQuantity)
	assert.False(t, products[1].InStock)
	assert.Nil(t, products[1].StockQuantity)
}

func TestCouponsFromConfig(t *testing.T) {
	coupons, err := CouponsFromConfig([]config.CouponConfig{{Code: "X", Percent: 5, Amount: "2.00"}})
	require.NoError(t, err)
	assert.Equal(t, []domcart.Coupon{{Code: "X", Percent: 5, Amount: 200}}, coupons)
}
