package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/checkoutrelay/internal/observability/logger"
	webhookdomain "github.com/smallbiznis/checkoutrelay/internal/webhook/domain"
	"go.uber.org/zap"
)

// maxWebhookBody bounds the raw body read before signature verification.
const maxWebhookBody = 1 << 20

func (s *Server) HandleClerkWebhook(c *gin.Context) {
	s.handleWebhook(c, webhookdomain.ProviderClerk)
}

func (s *Server) HandleRazorpayWebhook(c *gin.Context) {
	s.handleWebhook(c, webhookdomain.ProviderRazorpay)
}

// handleWebhook passes the exact received bytes to the webhook service.
// Failures after verification answer 5xx so the provider redelivers.
func (s *Server) handleWebhook(c *gin.Context, provider string) {
	c.Set(contextProviderKey, provider)

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.String(http.StatusBadRequest, "bad payload")
		return
	}

	ctx := c.Request.Context()
	if s.cfg.WebhookTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.WebhookTimeout)
		defer cancel()
	}

	err = s.webhookSvc.IngestWebhook(ctx, provider, payload, c.Request.Header)
	switch {
	case err == nil, errors.Is(err, webhookdomain.ErrEventAlreadyProcessed):
		c.Status(http.StatusOK)
	case errors.Is(err, webhookdomain.ErrInvalidSignature):
		_ = c.Error(err)
		c.String(http.StatusBadRequest, "bad signature")
	case errors.Is(err, webhookdomain.ErrInvalidPayload),
		errors.Is(err, webhookdomain.ErrInvalidEvent):
		_ = c.Error(err)
		c.String(http.StatusBadRequest, "bad payload")
	default:
		logger.FromContext(ctx).Error("webhook processing failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "webhook error")
	}
}
