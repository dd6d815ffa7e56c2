package quote

import "context"

// PaymentGateway is a payment option offered to the customer.
type PaymentGateway struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	MethodTitle string `json:"method_title"`
	Description string `json:"description"`
}

// PaymentContext is the cart snapshot gateways decide availability on.
type PaymentContext struct {
	Country               string
	Subtotal              Money
	Total                 Money
	NeedsShipping         bool
	ChosenShippingMethods []string
}

// PaymentRegistry lists the gateways currently available for a cart.
type PaymentRegistry interface {
	AvailableGateways(ctx context.Context, pc PaymentContext) ([]PaymentGateway, error)
}
