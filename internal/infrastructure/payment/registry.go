package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/config"
)

var ErrRule = errors.New("payment: availability rule")

// Variables an availability rule can read.
const (
	varCountry       = "country"
	varSubtotal      = "subtotal"
	varTotal         = "total"
	varNeedsShipping = "needs_shipping"
	varChosenMethods = "chosen_shipping_methods"
)

type gateway struct {
	desc quote.PaymentGateway
	rule cel.Program
}

// Registry lists configured gateways, filtering each through its optional CEL rule,
// for example `country == "SA" && total < 500.0`.
type Registry struct {
	gateways []gateway
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable(varCountry, cel.StringType),
		cel.Variable(varSubtotal, cel.DoubleType),
		cel.Variable(varTotal, cel.DoubleType),
		cel.Variable(varNeedsShipping, cel.BoolType),
		cel.Variable(varChosenMethods, cel.ListType(cel.StringType)),
	)
}

// NewRegistry compiles every rule up front so a bad rule fails startup, not a request.
func NewRegistry(cfg config.PaymentConfig) (*Registry, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("payment: cel env: %w", err)
	}
	r := &Registry{}
	for _, gc := range cfg.Gateways {
		if gc.Disabled {
			continue
		}
		g := gateway{desc: quote.PaymentGateway{
			ID:          gc.ID,
			Title:       gc.Title,
			MethodTitle: gc.MethodTitle,
			Description: gc.Description,
		}}
		if gc.AvailableWhen != "" {
			prg, err := compile(env, gc.AvailableWhen)
			if err != nil {
				return nil, fmt.Errorf("%w: gateway %s: %w", ErrRule, gc.ID, err)
			}
			g.rule = prg
		}
		r.gateways = append(r.gateways, g)
	}
	return r, nil
}

func compile(env *cel.Env, expr string) (cel.Program, error) {
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("rule %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	return env.Program(ast)
}

// AvailableGateways returns the gateways whose rule holds for pc, in configuration order.
func (r *Registry) AvailableGateways(ctx context.Context, pc quote.PaymentContext) ([]quote.PaymentGateway, error) {
	chosen := pc.ChosenShippingMethods
	if chosen == nil {
		chosen = []string{}
	}
	vars := map[string]any{
		varCountry:       pc.Country,
		varSubtotal:      toFloat(pc.Subtotal),
		varTotal:         toFloat(pc.Total),
		varNeedsShipping: pc.NeedsShipping,
		varChosenMethods: chosen,
	}

	out := make([]quote.PaymentGateway, 0, len(r.gateways))
	for _, g := range r.gateways {
		if g.rule != nil {
			val, _, err := g.rule.ContextEval(ctx, vars)
			if err != nil {
				return nil, fmt.Errorf("%w: gateway %s: %w", ErrRule, g.desc.ID, err)
			}
			ok, isBool := val.Value().(bool)
			if !isBool {
				return nil, fmt.Errorf("%w: gateway %s: non-bool result %v", ErrRule, g.desc.ID, val.Value())
			}
			if !ok {
				continue
			}
		}
		out = append(out, g.desc)
	}
	return out, nil
}

func toFloat(m quote.Money) float64 { return float64(m) / 100 }
