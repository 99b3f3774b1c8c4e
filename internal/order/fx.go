package order

import (
	"github.com/smallbiznis/checkoutrelay/internal/order/gateway"
	"github.com/smallbiznis/checkoutrelay/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(gateway.Provide),
	fx.Provide(service.New),
)
