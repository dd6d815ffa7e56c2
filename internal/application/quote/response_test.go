package quote

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
)

func TestShape_NilItemsEncodeAsEmptyList(t *testing.T) {
	raw, err := json.Marshal(Shape[string](FieldShippingMethods, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(raw))
}

func TestShape_MessageIsStable(t *testing.T) {
	report := domcart.StockAdjustmentReport{
		{ProductID: 3, Requested: 1, Reason: domcart.ReasonNotFound},
		{ProductID: 1, Requested: 2, Reason: domcart.ReasonOutOfStock},
		{ProductID: 2, Requested: 5, Available: 1, Reason: domcart.ReasonLimitedStock},
		{ProductID: 4, Requested: 2, Reason: domcart.ReasonOutOfStock},
	}
	resp := Shape(FieldPaymentMethods, []string{"cod"}, report)

	first, err := json.Marshal(resp)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
	assert.Equal(t, "2_items_out_of_stock, 1_items_limited_stock, 1_items_not_found", resp.Message())

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(first, &decoded))
	assert.Contains(t, decoded, "payment_methods")
	assert.Contains(t, decoded, "stock_adjustments")
}
