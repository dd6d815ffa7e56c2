package cart

import "time"

// StockAdjustedEvent is emitted when a rebuild committed less than the client asked for.
type StockAdjustedEvent struct {
	SessionID   string                `json:"session_id"`
	Variant     string                `json:"variant"`
	Adjustments StockAdjustmentReport `json:"adjustments"`
	FailedItems int                   `json:"failed_items"`
	OccurredAt  time.Time             `json:"occurred_at"`
}

func (StockAdjustedEvent) EventName() string { return "cart.stock_adjusted" }

func NewStockAdjustedEvent(sessionID, variant string, report StockAdjustmentReport, failed int) StockAdjustedEvent {
	return StockAdjustedEvent{
		SessionID:   sessionID,
		Variant:     variant,
		Adjustments: report,
		FailedItems: failed,
		OccurredAt:  time.Now().UTC(),
	}
}

// EventKey keeps the events of one session on one partition.
func (e StockAdjustedEvent) EventKey() string { return e.SessionID }
