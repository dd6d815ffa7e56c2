package cart

import (
	"strconv"
	"strings"
)

// StockAdjustment is the client-facing record of one Adjusted or Skipped line item.
type StockAdjustment struct {
	ProductID   int64  `json:"product_id"`
	VariationID int64  `json:"variation_id,omitempty"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	Reason      Reason `json:"reason"`
}

// StockAdjustmentReport lists adjustments in submission order.
type StockAdjustmentReport []StockAdjustment

// NewReport keeps the reportable outcomes; Failed outcomes are counted, not reported.
func NewReport(outcomes []InsertionOutcome) StockAdjustmentReport {
	var report StockAdjustmentReport
	for _, o := range outcomes {
		if !o.Reportable() {
			continue
		}
		report = append(report, StockAdjustment{
			ProductID:   o.Item.ProductID,
			VariationID: o.Item.VariationID,
			Requested:   o.Requested,
			Available:   o.Available,
			Reason:      o.Reason,
		})
	}
	return report
}

// Tally counts adjustments per reason.
func (r StockAdjustmentReport) Tally() map[Reason]int {
	counts := make(map[Reason]int, len(Reasons))
	for _, a := range r {
		counts[a.Reason]++
	}
	return counts
}

// Message summarises the report as "<n>_items_<reason>" fragments in fixed reason order.
func (r StockAdjustmentReport) Message() string {
	if len(r) == 0 {
		return ""
	}
	counts := r.Tally()
	parts := make([]string, 0, len(Reasons))
	for _, reason := range Reasons {
		if n := counts[reason]; n > 0 {
			parts = append(parts, strconv.Itoa(n)+"_items_"+reason.String())
		}
	}
	return strings.Join(parts, ", ")
}
