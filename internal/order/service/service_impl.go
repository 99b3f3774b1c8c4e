package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/checkoutrelay/internal/clock"
	"github.com/smallbiznis/checkoutrelay/internal/config"
	eligibilitydomain "github.com/smallbiznis/checkoutrelay/internal/eligibility/domain"
	obsmetrics "github.com/smallbiznis/checkoutrelay/internal/observability/metrics"
	"github.com/smallbiznis/checkoutrelay/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg            config.Config
	Log            *zap.Logger
	Clock          clock.Clock
	EligibilitySvc eligibilitydomain.Service
	Gateway        domain.Gateway
	ObsMetrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log            *zap.Logger
	clock          clock.Clock
	currency       string
	eligibilitySvc eligibilitydomain.Service
	gateway        domain.Gateway
	obsMetrics     *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	currency := strings.ToUpper(strings.TrimSpace(p.Cfg.Razorpay.Currency))
	if currency == "" {
		currency = "INR"
	}
	return &Service{
		log:            p.Log.Named("order.service"),
		clock:          p.Clock,
		currency:       currency,
		eligibilitySvc: p.EligibilitySvc,
		gateway:        p.Gateway,
		obsMetrics:     p.ObsMetrics,
	}
}

// PriceOrder applies the first-order discount, if the user currently holds
// one, and creates the gateway order. Eligibility is never consumed here.
func (s *Service) PriceOrder(ctx context.Context, req domain.PriceOrderRequest) (domain.PriceOrderResponse, error) {
	if req.Subtotal <= 0 {
		return domain.PriceOrderResponse{}, domain.ErrInvalidAmount
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.PriceOrderResponse{}, domain.ErrInvalidUser
	}

	record, err := s.eligibilitySvc.Eligibility(ctx, userID)
	if err != nil {
		return domain.PriceOrderResponse{}, err
	}

	now := s.clock.Now()
	eligible := record.Valid(now)
	percent := record.Percent
	if percent <= 0 {
		percent = eligibilitydomain.DefaultPercent
	}

	var discount int64
	if eligible {
		discount = domain.Discount(req.Subtotal, percent)
	}
	amount := req.Subtotal - discount
	if amount < 0 {
		amount = 0
	}

	s.log.Info("pricing order",
		zap.String("user_id", userID),
		zap.Bool("eligible", eligible),
		zap.Int64("subtotal", req.Subtotal),
		zap.Int64("discount", discount),
		zap.Int64("amount", amount),
	)

	order, err := s.gateway.CreateOrder(ctx, domain.GatewayOrder{
		Amount:   amount,
		Currency: s.currency,
		Receipt:  strings.TrimSpace(req.Receipt),
		Notes: domain.Notes{
			UserID:          userID,
			DiscountApplied: eligible,
			DiscountAmount:  discount,
			Percent:         percent,
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrGatewayNotReady) {
			return domain.PriceOrderResponse{}, err
		}
		s.log.Error("gateway order creation failed", zap.String("user_id", userID), zap.Error(err))
		return domain.PriceOrderResponse{}, fmt.Errorf("%w: %w", domain.ErrGatewayOrderFailed, err)
	}

	s.obsMetrics.RecordOrderPriced(ctx, eligible)

	return domain.PriceOrderResponse{
		Order:    order,
		Discount: discount,
		Eligible: eligible,
		Amount:   amount,
	}, nil
}
