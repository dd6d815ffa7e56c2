package cart

import "context"

// Hook names a cart-mutation event that listeners subscribe to.
type Hook string

const (
	HookItemAdded         Hook = "cart.item_added"
	HookLoadedFromSession Hook = "cart.loaded_from_session"
	HookUpdated           Hook = "cart.updated"
)

// RecalculationHooks are the events whose listeners recompute the whole cart.
var RecalculationHooks = []Hook{HookItemAdded, HookLoadedFromSession, HookUpdated}

// HookEvent is delivered to listeners when a hook fires.
type HookEvent struct {
	Hook        Hook
	Cart        CartStore
	ProductID   int64
	VariationID int64
	Quantity    int
}

// Listener reacts to a fired hook.
type Listener func(ctx context.Context, e HookEvent) error

// Registration is the full listener list of one hook. A nil Registration means the hook had
// no listeners.
type Registration []Listener

// EventBus is the listener registry the suppression scope detaches from and re-attaches to.
type EventBus interface {
	// Detach removes and returns the current registration of hook, leaving it with none.
	Detach(hook Hook) Registration
	// Attach replaces the registration of hook.
	Attach(hook Hook, reg Registration)
}

// Dispatcher fires hooks; carts hold one.
type Dispatcher interface {
	Fire(ctx context.Context, e HookEvent)
}
