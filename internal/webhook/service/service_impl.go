package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/checkoutrelay/internal/clock"
	eligibilitydomain "github.com/smallbiznis/checkoutrelay/internal/eligibility/domain"
	obsmetrics "github.com/smallbiznis/checkoutrelay/internal/observability/metrics"
	"github.com/smallbiznis/checkoutrelay/internal/webhook/adapters"
	"github.com/smallbiznis/checkoutrelay/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	outcomeProcessed = "processed"
	outcomeDuplicate = "duplicate"
	outcomeIgnored   = "ignored"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           domain.Repository
	Adapters       *adapters.Registry
	EligibilitySvc eligibilitydomain.Service
	ObsMetrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           domain.Repository
	adapters       *adapters.Registry
	eligibilitySvc eligibilitydomain.Service
	obsMetrics     *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("webhook.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		adapters:       p.Adapters,
		eligibilitySvc: p.EligibilitySvc,
		obsMetrics:     p.ObsMetrics,
	}
}

// IngestWebhook verifies the raw payload, journals the event and applies its
// effect. Nothing is read or written before the signature checks out.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	adapter, err := s.adapters.Adapter(provider)
	if err != nil {
		return err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", provider))
		s.obsMetrics.RecordWebhookEvent(ctx, provider, "", outcomeRejected)
		return domain.ErrInvalidSignature
	}

	event, err := adapter.Parse(ctx, payload, headers)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			s.obsMetrics.RecordWebhookEvent(ctx, provider, "", outcomeIgnored)
			return nil
		}
		s.log.Warn("webhook payload rejected", zap.String("provider", provider), zap.Error(err))
		s.obsMetrics.RecordWebhookEvent(ctx, provider, "", outcomeRejected)
		return err
	}
	if event.RawPayload == nil {
		event.RawPayload = payload
	}

	log := s.log.With(
		zap.String("provider", event.Provider),
		zap.String("provider_event_id", event.ProviderEventID),
		zap.String("event_type", event.Type),
	)

	now := s.clock.Now()
	received := domain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		UserID:          event.UserID,
		Payload:         datatypes.JSON(event.RawPayload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		log.Error("webhook journal insert failed", zap.Error(err))
		s.obsMetrics.RecordWebhookEvent(ctx, event.Provider, event.Type, outcomeFailed)
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return domain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			log.Info("webhook redelivery acknowledged")
			s.obsMetrics.RecordWebhookEvent(ctx, event.Provider, event.Type, outcomeDuplicate)
			return domain.ErrEventAlreadyProcessed
		}
	}

	if err := s.apply(ctx, log, event, now); err != nil {
		log.Error("webhook processing failed", zap.String("user_id", event.UserID), zap.Error(err))
		s.obsMetrics.RecordWebhookEvent(ctx, event.Provider, event.Type, outcomeFailed)
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, s.clock.Now()); err != nil {
		log.Error("webhook journal update failed", zap.Error(err))
		return err
	}

	s.obsMetrics.RecordWebhookEvent(ctx, event.Provider, event.Type, outcomeProcessed)
	return nil
}

func (s *Service) apply(ctx context.Context, log *zap.Logger, event *domain.Event, now time.Time) error {
	switch event.Type {
	case domain.EventTypeUserCreated:
		return s.eligibilitySvc.Grant(ctx, event.UserID, now)
	case domain.EventTypePaymentCaptured:
		if strings.TrimSpace(event.UserID) == "" {
			log.Warn("payment captured without clerkUserId note",
				zap.String("payment_id", event.PaymentID),
				zap.String("order_id", event.OrderID),
			)
			return nil
		}
		result, err := s.eligibilitySvc.Consume(ctx, event.UserID, now)
		if err != nil {
			return err
		}
		log.Info("payment captured",
			zap.String("user_id", event.UserID),
			zap.String("payment_id", event.PaymentID),
			zap.Bool("discount_consumed", result.Consumed),
			zap.Bool("late_capture", result.Late),
		)
		return nil
	default:
		return domain.ErrInvalidEvent
	}
}
