package cart

import (
	"fmt"
)

// OutcomeKind classifies what happened to one line item.
type OutcomeKind int

const (
	OutcomeCommitted OutcomeKind = iota + 1
	OutcomeAdjusted
	OutcomeSkipped
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCommitted:
		return "committed"
	case OutcomeAdjusted:
		return "adjusted"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Reason explains an Adjusted or Skipped outcome.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonOutOfStock
	ReasonLimitedStock
	ReasonNotFound
)

// Reasons lists adjustment reasons in reporting order.
var Reasons = [...]Reason{ReasonOutOfStock, ReasonLimitedStock, ReasonNotFound}

func (r Reason) String() string {
	switch r {
	case ReasonOutOfStock:
		return "out_of_stock"
	case ReasonLimitedStock:
		return "limited_stock"
	case ReasonNotFound:
		return "not_found"
	default:
		return ""
	}
}

func (r Reason) MarshalText() ([]byte, error) {
	if r == ReasonNone {
		return nil, fmt.Errorf("cart: reason %d has no text form", int(r))
	}
	return []byte(r.String()), nil
}

// InsertionOutcome is the result of applying the insertion policy to one line item.
type InsertionOutcome struct {
	Item      LineItemRequest
	Kind      OutcomeKind
	Requested int
	Committed int
	// Available is the stock the decision was based on; zero for unknown products.
	Available int
	Reason    Reason
	Err       error
}

func Committed(item LineItemRequest, qty int) InsertionOutcome {
	return InsertionOutcome{Item: item, Kind: OutcomeCommitted, Requested: item.Quantity, Committed: qty, Available: qty}
}

func Adjusted(item LineItemRequest, committed int) InsertionOutcome {
	return InsertionOutcome{
		Item:      item,
		Kind:      OutcomeAdjusted,
		Requested: item.Quantity,
		Committed: committed,
		Available: committed,
		Reason:    ReasonLimitedStock,
	}
}

func Skipped(item LineItemRequest, reason Reason, available int) InsertionOutcome {
	return InsertionOutcome{Item: item, Kind: OutcomeSkipped, Requested: item.Quantity, Available: available, Reason: reason}
}

func Failed(item LineItemRequest, err error) InsertionOutcome {
	return InsertionOutcome{Item: item, Kind: OutcomeFailed, Requested: item.Quantity, Err: err}
}

// Reportable is true for outcomes the client is told about: Adjusted and Skipped.
func (o InsertionOutcome) Reportable() bool {
	return o.Kind == OutcomeAdjusted || o.Kind == OutcomeSkipped
}
