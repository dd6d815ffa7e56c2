package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/config"
)

var ErrUnavailable = errors.New("resilience: dependency unavailable")

// Breaker wraps gobreaker and logs state changes.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker
	name string
}

// NewBreaker trips after cfg.FailureThreshold consecutive failures. Errors matching any of
// benign count as successes.
func NewBreaker(name string, cfg config.BreakerConfig, logger observability.Logger, benign ...error) *Breaker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	log := logger.With(observability.F("component", "breaker"), observability.F("breaker", name))
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker_state_changed",
				observability.F("from", from.String()),
				observability.F("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			for _, b := range benign {
				if errors.Is(err, b) {
					return true
				}
			}
			return false
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings), name: name}
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w: %s: %w", ErrUnavailable, b.name, err)
	}
	if err != nil {
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

// Catalog guards a catalog; not-found lookups do not count against it.
type Catalog struct {
	next domcart.Catalog
	b    *Breaker
}

func NewCatalog(next domcart.Catalog, cfg config.BreakerConfig, logger observability.Logger) *Catalog {
	return &Catalog{next: next, b: NewBreaker("catalog", cfg, logger, domcart.ErrProductNotFound)}
}

func (c *Catalog) Lookup(ctx context.Context, id int64) (*domcart.Product, error) {
	return execute(c.b, func() (*domcart.Product, error) { return c.next.Lookup(ctx, id) })
}

// ShippingEngine guards a shipping engine.
type ShippingEngine struct {
	next quote.ShippingEngine
	b    *Breaker
}

func NewShippingEngine(next quote.ShippingEngine, cfg config.BreakerConfig, logger observability.Logger) *ShippingEngine {
	return &ShippingEngine{next: next, b: NewBreaker("shipping_engine", cfg, logger, context.Canceled)}
}

func (s *ShippingEngine) Calculate(ctx context.Context, packages []quote.Package) ([]quote.RateGroup, error) {
	return execute(s.b, func() ([]quote.RateGroup, error) { return s.next.Calculate(ctx, packages) })
}

// PaymentRegistry guards a payment registry.
type PaymentRegistry struct {
	next quote.PaymentRegistry
	b    *Breaker
}

func NewPaymentRegistry(next quote.PaymentRegistry, cfg config.BreakerConfig, logger observability.Logger) *PaymentRegistry {
	return &PaymentRegistry{next: next, b: NewBreaker("payment_registry", cfg, logger, context.Canceled)}
}

func (p *PaymentRegistry) AvailableGateways(ctx context.Context, pc quote.PaymentContext) ([]quote.PaymentGateway, error) {
	return execute(p.b, func() ([]quote.PaymentGateway, error) { return p.next.AvailableGateways(ctx, pc) })
}
