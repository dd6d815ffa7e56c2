package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/config"
)

func registry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(config.PaymentConfig{Gateways: []config.GatewayConfig{
		{ID: "cod", Title: "Cash on delivery", AvailableWhen: `country == "SA" && total <= 1000.0 && needs_shipping`},
		{ID: "card", Title: "Card"},
		{ID: "pickup_pay", Title: "Pay at pickup", AvailableWhen: `"local_pickup:1" in chosen_shipping_methods`},
		{ID: "bank", Title: "Bank transfer", Disabled: true},
	}})
	require.NoError(t, err)
	return r
}

func ids(gws []quote.PaymentGateway) []string {
	out := make([]string, 0, len(gws))
	for _, g := range gws {
		out = append(out, g.ID)
	}
	return out
}

func TestRegistry_Rules(t *testing.T) {
	r := registry(t)
	tests := []struct {
		name string
		pc   quote.PaymentContext
		want []string
	}{
		{"cod in country", quote.PaymentContext{Country: "SA", Total: 50000, NeedsShipping: true}, []string{"cod", "card"}},
		{"cod over limit", quote.PaymentContext{Country: "SA", Total: 100001, NeedsShipping: true}, []string{"card"}},
		{"cod needs shipping", quote.PaymentContext{Country: "SA", Total: 100}, []string{"card"}},
		{"other country", quote.PaymentContext{Country: "FR", NeedsShipping: true}, []string{"card"}},
		{"pickup chosen", quote.PaymentContext{ChosenShippingMethods: []string{"local_pickup:1"}}, []string{"card", "pickup_pay"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.AvailableGateways(context.Background(), tt.pc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestRegistry_BadRules(t *testing.T) {
	_, err := NewRegistry(config.PaymentConfig{Gateways: []config.GatewayConfig{{ID: "x", Title: "x", AvailableWhen: `country ==`}}})
	assert.ErrorIs(t, err, ErrRule)

	_, err = NewRegistry(config.PaymentConfig{Gateways: []config.GatewayConfig{{ID: "x", Title: "x", AvailableWhen: `total + 1.0`}}})
	assert.ErrorIs(t, err, ErrRule)

	_, err = NewRegistry(config.PaymentConfig{Gateways: []config.GatewayConfig{{ID: "x", Title: "x", AvailableWhen: `unknown_var`}}})
	assert.ErrorIs(t, err, ErrRule)
}

func TestRegistry_Empty(t *testing.T) {
	r, err := NewRegistry(config.PaymentConfig{})
	require.NoError(t, err)
	got, err := r.AvailableGateways(context.Background(), quote.PaymentContext{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
