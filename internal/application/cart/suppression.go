package cart

import (
	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
)

// SuppressionScope holds listener registrations detached for the duration of a batch.
type SuppressionScope struct {
	bus      domcart.EventBus
	hooks    []domcart.Hook
	captured map[domcart.Hook]domcart.Registration
}

// Suppress detaches the listeners of hooks and remembers them. Callers must defer Restore.
func Suppress(bus domcart.EventBus, hooks ...domcart.Hook) *SuppressionScope {
	s := &SuppressionScope{
		bus:      bus,
		captured: make(map[domcart.Hook]domcart.Registration, len(hooks)),
	}
	if bus == nil {
		return s
	}
	for _, h := range hooks {
		if _, dup := s.captured[h]; dup {
			continue
		}
		s.captured[h] = bus.Detach(h)
		s.hooks = append(s.hooks, h)
	}
	return s
}

// Restore re-attaches exactly what Suppress captured and clears the capture set.
// Calling it more than once is a no-op.
func (s *SuppressionScope) Restore() {
	if s == nil || s.bus == nil {
		return
	}
	for _, h := range s.hooks {
		s.bus.Attach(h, s.captured[h])
	}
	s.hooks = nil
	s.captured = map[domcart.Hook]domcart.Registration{}
}

// Active reports how many hooks are currently held.
func (s *SuppressionScope) Active() int {
	if s == nil {
		return 0
	}
	return len(s.hooks)
}

// WithSuppressed runs fn with hooks detached and restores them however fn returns,
// including by panic.
func WithSuppressed(bus domcart.EventBus, hooks []domcart.Hook, fn func() error) error {
	scope := Suppress(bus, hooks...)
	defer scope.Restore()
	return fn()
}
