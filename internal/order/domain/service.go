package domain

import (
	"context"
	"errors"
)

type Service interface {
	PriceOrder(ctx context.Context, req PriceOrderRequest) (PriceOrderResponse, error)
}

// Gateway creates orders at the payment provider and returns the provider's
// order object as-is.
type Gateway interface {
	CreateOrder(ctx context.Context, order GatewayOrder) (map[string]any, error)
}

var (
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidUser        = errors.New("invalid_user")
	ErrGatewayOrderFailed = errors.New("gateway_order_failed")
	ErrGatewayNotReady    = errors.New("gateway_not_configured")
)
