package hooks

import (
	"context"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
)

const triggerListener = "listener"

// Recalculate recomputes the whole cart on every fired hook, the per-mutation behaviour the
// rebuild pipeline suppresses during a batch.
func Recalculate(metrics observability.Metrics) domcart.Listener {
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	recalcs := metrics.Counter(observability.MCartRecalculations).Bind(observability.L("trigger", triggerListener))
	return func(ctx context.Context, e domcart.HookEvent) error {
		if e.Cart == nil {
			return nil
		}
		recalcs.Add(1)
		return e.Cart.RecalculateTotals(ctx)
	}
}

// Prototype builds the process-wide registry with recalculation bound to every recalculation hook.
func Prototype(logger observability.Logger, metrics observability.Metrics) *Registry {
	r := NewRegistry(logger)
	l := Recalculate(metrics)
	for _, h := range domcart.RecalculationHooks {
		r.Subscribe(h, l)
	}
	return r
}
