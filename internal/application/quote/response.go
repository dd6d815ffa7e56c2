package quote

import (
	"bytes"
	"encoding/json"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
)

const (
	FieldShippingMethods = "shipping_methods"
	FieldPaymentMethods  = "payment_methods"
)

// Response is a quote merged with the stock adjustments of the rebuild that produced it.
// Without adjustments it encodes as the bare list; otherwise as
// {<field>: [...], "stock_adjustments": [...], "message": "..."}.
type Response[T any] struct {
	Field       string
	Items       []T
	Adjustments domcart.StockAdjustmentReport
}

// Shape merges items with report under field.
func Shape[T any](field string, items []T, report domcart.StockAdjustmentReport) *Response[T] {
	if items == nil {
		items = []T{}
	}
	return &Response[T]{Field: field, Items: items, Adjustments: report}
}

// Degraded reports whether the client asked for something the cart could not hold.
func (r *Response[T]) Degraded() bool { return len(r.Adjustments) > 0 }

func (r *Response[T]) Message() string { return r.Adjustments.Message() }

func (r *Response[T]) MarshalJSON() ([]byte, error) {
	items, err := json.Marshal(r.Items)
	if err != nil {
		return nil, err
	}
	if !r.Degraded() {
		return items, nil
	}
	field, err := json.Marshal(r.Field)
	if err != nil {
		return nil, err
	}
	adjustments, err := json.Marshal(r.Adjustments)
	if err != nil {
		return nil, err
	}
	msg, err := json.Marshal(r.Message())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.Write(field)
	buf.WriteByte(':')
	buf.Write(items)
	buf.WriteString(`,"stock_adjustments":`)
	buf.Write(adjustments)
	buf.WriteString(`,"message":`)
	buf.Write(msg)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
