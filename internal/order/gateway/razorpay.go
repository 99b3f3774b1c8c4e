package gateway

import (
	"context"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/smallbiznis/checkoutrelay/internal/config"
	"github.com/smallbiznis/checkoutrelay/internal/order/domain"
	"go.uber.org/zap"
)

// orderCreator matches the Razorpay SDK orders resource.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Razorpay struct {
	orders orderCreator
}

func NewRazorpay(orders orderCreator) *Razorpay {
	return &Razorpay{orders: orders}
}

// Provide builds the Razorpay gateway from config. Without API keys every
// order attempt fails with ErrGatewayNotReady.
func Provide(cfg config.Config, log *zap.Logger) domain.Gateway {
	keyID := strings.TrimSpace(cfg.Razorpay.KeyID)
	keySecret := strings.TrimSpace(cfg.Razorpay.KeySecret)
	if keyID == "" || keySecret == "" {
		log.Named("order.gateway").Error("razorpay keys not set, order creation disabled")
		return &Razorpay{}
	}
	client := razorpay.NewClient(keyID, keySecret)
	return NewRazorpay(client.Order)
}

func (g *Razorpay) CreateOrder(ctx context.Context, order domain.GatewayOrder) (map[string]any, error) {
	if g == nil || g.orders == nil {
		return nil, domain.ErrGatewayNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   order.Amount,
		"currency": order.Currency,
		"notes":    order.Notes.Map(),
	}
	if order.Receipt != "" {
		data["receipt"] = order.Receipt
	}

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := g.orders.Create(data, nil)
		done <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return res.body, nil
	}
}
