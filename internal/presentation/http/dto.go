package httppresentation

import (
	"strings"

	appquote "github.com/salemaljebaly/mstore-api-optimizer/internal/application/quote"
	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	domquote "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
)

// quoteRequest is the body both flutter_woo quote endpoints accept. Unknown fields are
// ignored: mobile clients post the whole checkout form.
type quoteRequest struct {
	LineItems     []lineItemDTO     `json:"line_items" validate:"dive"`
	Shipping      *shippingDTO      `json:"shipping"`
	CouponLines   []couponLineDTO   `json:"coupon_lines"`
	ShippingLines []shippingLineDTO `json:"shipping_lines"`
}

type lineItemDTO struct {
	ProductID   int64             `json:"product_id" validate:"gte=0"`
	VariationID int64             `json:"variation_id" validate:"gte=0"`
	Quantity    int               `json:"quantity" validate:"gt=0"`
	Attributes  map[string]string `json:"attributes"`
	MetaData    []metaDTO         `json:"meta_data" validate:"dive"`
}

type metaDTO struct {
	Key   string  `json:"key" validate:"required"`
	Value *string `json:"value"`
}

// shippingDTO carries the geolocation hint under the marketplace plugin's wcfmmp_ keys; the
// unprefixed keys are read when the prefixed ones are empty.
type shippingDTO struct {
	domquote.Address
	WcfmmpUserLocation    string `json:"wcfmmp_user_location"`
	WcfmmpUserLocationLat string `json:"wcfmmp_user_location_lat"`
	WcfmmpUserLocationLng string `json:"wcfmmp_user_location_lng"`
	UserLocation          string `json:"user_location"`
	UserLocationLat       string `json:"user_location_lat"`
	UserLocationLng       string `json:"user_location_lng"`
}

func (s *shippingDTO) location() appquote.Location {
	return appquote.Location{
		Name: firstNonBlank(s.WcfmmpUserLocation, s.UserLocation),
		Lat:  firstNonBlank(s.WcfmmpUserLocationLat, s.UserLocationLat),
		Lng:  firstNonBlank(s.WcfmmpUserLocationLng, s.UserLocationLng),
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type couponLineDTO struct {
	Code string `json:"code"`
}

type shippingLineDTO struct {
	MethodID string `json:"method_id"`
}

func (q *quoteRequest) items() []domcart.LineItemRequest {
	out := make([]domcart.LineItemRequest, 0, len(q.LineItems))
	for _, li := range q.LineItems {
		meta := make([]domcart.MetaEntry, 0, len(li.MetaData))
		for _, m := range li.MetaData {
			meta = append(meta, domcart.MetaEntry{Key: m.Key, Value: m.Value})
		}
		out = append(out, domcart.LineItemRequest{
			ProductID:   li.ProductID,
			VariationID: li.VariationID,
			Quantity:    li.Quantity,
			Attributes:  domcart.MergeMeta(li.Attributes, meta),
		})
	}
	return out
}

// toRequest maps the body onto a quote request; per-session collaborators are filled by the caller.
func (q *quoteRequest) toRequest(sessionID string) appquote.Request {
	req := appquote.Request{SessionID: sessionID, Items: q.items()}
	if q.Shipping != nil {
		addr := q.Shipping.Address
		req.Address = &addr
		req.Location = q.Shipping.location()
	}
	for _, c := range q.CouponLines {
		req.CouponCodes = append(req.CouponCodes, c.Code)
	}
	for _, s := range q.ShippingLines {
		req.ShippingMethods = append(req.ShippingMethods, s.MethodID)
	}
	return req
}
