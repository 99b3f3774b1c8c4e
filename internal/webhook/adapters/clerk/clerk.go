package clerk

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/checkoutrelay/internal/webhook/domain"
	svix "github.com/svix/svix-webhooks/go"
)

const (
	headerID        = "svix-id"
	headerTimestamp = "svix-timestamp"
	headerSignature = "svix-signature"
)

// Adapter handles Clerk webhooks, which are delivered and signed by Svix.
type Adapter struct {
	webhook *svix.Webhook
}

// New builds the adapter from the Clerk signing secret (whsec_...). An empty
// or malformed secret yields an adapter that rejects every delivery.
func New(secret string) (*Adapter, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &Adapter{}, nil
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, err
	}
	return &Adapter{webhook: wh}, nil
}

func (a *Adapter) Provider() string {
	return domain.ProviderClerk
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a == nil || a.webhook == nil {
		return domain.ErrInvalidSignature
	}
	for _, name := range []string{headerID, headerTimestamp, headerSignature} {
		if strings.TrimSpace(headers.Get(name)) == "" {
			return domain.ErrInvalidSignature
		}
	}
	if err := a.webhook.Verify(payload, headers); err != nil {
		return domain.ErrInvalidSignature
	}
	return nil
}

type clerkEvent struct {
	Type      string `json:"type"`
	Object    string `json:"object"`
	Timestamp int64  `json:"timestamp"`
	Data      struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*domain.Event, error) {
	var event clerkEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	eventType := strings.TrimSpace(event.Type)
	if eventType != domain.EventTypeUserCreated {
		return nil, domain.ErrEventIgnored
	}

	userID := strings.TrimSpace(event.Data.ID)
	if userID == "" {
		return nil, domain.ErrInvalidPayload
	}

	messageID := strings.TrimSpace(headers.Get(headerID))
	if messageID == "" {
		return nil, domain.ErrInvalidEvent
	}

	occurredAt := time.Now().UTC()
	if event.Timestamp > 0 {
		occurredAt = time.UnixMilli(event.Timestamp).UTC()
	}

	return &domain.Event{
		Provider:        domain.ProviderClerk,
		ProviderEventID: messageID,
		Type:            eventType,
		UserID:          userID,
		OccurredAt:      occurredAt,
		RawPayload:      payload,
	}, nil
}
