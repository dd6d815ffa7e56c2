package cart

import "strings"

// LineItemRequest is one entry of the client-submitted cart. It is not mutated after decoding.
type LineItemRequest struct {
	ProductID   int64
	VariationID int64
	Quantity    int
	Attributes  map[string]string
}

// LookupID is the id whose stock governs the line: the variation when set, else the product.
func (li LineItemRequest) LookupID() int64 {
	if li.VariationID != 0 {
		return li.VariationID
	}
	return li.ProductID
}

// MetaEntry is a key/value pair as mobile clients send it in meta_data.
type MetaEntry struct {
	Key   string
	Value *string
}

// MergeMeta folds meta entries into attrs: nil values are dropped and keys are lower-cased.
// attrs is not modified; a new map is returned.
func MergeMeta(attrs map[string]string, meta []MetaEntry) map[string]string {
	if len(attrs) == 0 && len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs)+len(meta))
	for k, v := range attrs {
		out[k] = v
	}
	for _, m := range meta {
		if m.Value == nil {
			continue
		}
		out[strings.ToLower(m.Key)] = *m.Value
	}
	return out
}
