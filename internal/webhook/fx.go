package webhook

import (
	"github.com/smallbiznis/checkoutrelay/internal/config"
	"github.com/smallbiznis/checkoutrelay/internal/webhook/adapters"
	"github.com/smallbiznis/checkoutrelay/internal/webhook/adapters/clerk"
	"github.com/smallbiznis/checkoutrelay/internal/webhook/adapters/razorpay"
	"github.com/smallbiznis/checkoutrelay/internal/webhook/repository"
	"github.com/smallbiznis/checkoutrelay/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(repository.Provide),
	fx.Provide(NewRegistry),
	fx.Provide(service.NewService),
)

func NewRegistry(cfg config.Config) (*adapters.Registry, error) {
	clerkAdapter, err := clerk.New(cfg.Clerk.WebhookSecret)
	if err != nil {
		return nil, err
	}
	return adapters.NewRegistry(
		clerkAdapter,
		razorpay.New(cfg.Razorpay.WebhookSecret),
	), nil
}
