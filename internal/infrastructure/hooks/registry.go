package hooks

import (
	"context"
	"runtime/debug"
	"sync"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability/logctx"
)

const componentHooks = "hooks"

// Registry is the cart listener registry. The process keeps one prototype and every request
// works on a Clone, so detaching listeners never leaks across requests.
type Registry struct {
	mu   sync.RWMutex
	regs map[domcart.Hook]domcart.Registration
	log  observability.Logger
}

func NewRegistry(logger observability.Logger) *Registry {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Registry{
		regs: make(map[domcart.Hook]domcart.Registration),
		log:  logger.With(observability.F("component", componentHooks)),
	}
}

// Subscribe appends l to the listeners of hook.
func (r *Registry) Subscribe(hook domcart.Hook, l domcart.Listener) {
	if l == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs[hook] = append(r.regs[hook], l)
}

func (r *Registry) Detach(hook domcart.Hook) domcart.Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := r.regs[hook]
	delete(r.regs, hook)
	return reg
}

func (r *Registry) Attach(hook domcart.Hook, reg domcart.Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(reg) == 0 {
		delete(r.regs, hook)
		return
	}
	r.regs[hook] = append(domcart.Registration(nil), reg...)
}

// Len is the number of listeners on hook.
func (r *Registry) Len(hook domcart.Hook) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regs[hook])
}

// Clone copies the registrations into an independent registry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &Registry{regs: make(map[domcart.Hook]domcart.Registration, len(r.regs)), log: r.log}
	for h, reg := range r.regs {
		out.regs[h] = append(domcart.Registration(nil), reg...)
	}
	return out
}

// Fire runs the listeners of e.Hook synchronously in subscription order. A failing or
// panicking listener is logged and does not stop the others.
func (r *Registry) Fire(ctx context.Context, e domcart.HookEvent) {
	r.mu.RLock()
	listeners := append(domcart.Registration(nil), r.regs[e.Hook]...)
	r.mu.RUnlock()
	if len(listeners) == 0 {
		return
	}

	logger := logctx.FromOr(ctx, r.log).With(observability.F("hook", string(e.Hook)))
	for i, l := range listeners {
		r.call(ctx, logger, i, l, e)
	}
}

func (r *Registry) call(ctx context.Context, logger observability.Logger, idx int, l domcart.Listener, e domcart.HookEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("hook_listener_panic",
				observability.F("listener", idx),
				observability.F("panic", rec),
				observability.F("stack", string(debug.Stack())),
			)
		}
	}()
	if err := l(ctx, e); err != nil {
		logger.Warn("hook_listener_error",
			observability.F("listener", idx),
			observability.F("error", err),
		)
	}
}
