package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	orderdomain "github.com/smallbiznis/checkoutrelay/internal/order/domain"
	"github.com/smallbiznis/checkoutrelay/internal/webhook/domain"
)

const (
	headerSignature = "X-Razorpay-Signature"
	headerEventID   = "X-Razorpay-Event-Id"
)

type Adapter struct {
	webhookSecret string
}

func New(secret string) *Adapter {
	return &Adapter{webhookSecret: strings.TrimSpace(secret)}
}

func (a *Adapter) Provider() string {
	return domain.ProviderRazorpay
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a == nil || a.webhookSecret == "" {
		return domain.ErrInvalidSignature
	}
	if !VerifySignature(payload, headers.Get(headerSignature), a.webhookSecret) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Signature returns hex(HMAC-SHA256(secret, payload)).
func Signature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against the raw request bytes in constant time.
func VerifySignature(payload []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || secret == "" {
		return false
	}
	expected := Signature(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}

type razorpayEvent struct {
	Entity    string `json:"entity"`
	Event     string `json:"event"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Payment struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type razorpayPayment struct {
	ID       string          `json:"id"`
	OrderID  string          `json:"order_id"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
	Notes    json.RawMessage `json:"notes"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*domain.Event, error) {
	var event razorpayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	eventType := strings.TrimSpace(event.Event)
	if eventType != domain.EventTypePaymentCaptured {
		return nil, domain.ErrEventIgnored
	}

	payment := event.Payload.Payment.Entity
	paymentID := strings.TrimSpace(payment.ID)

	eventID := strings.TrimSpace(headers.Get(headerEventID))
	if eventID == "" {
		if paymentID == "" {
			return nil, domain.ErrInvalidEvent
		}
		eventID = eventType + ":" + paymentID
	}

	occurredAt := time.Now().UTC()
	if event.CreatedAt > 0 {
		occurredAt = time.Unix(event.CreatedAt, 0).UTC()
	}

	return &domain.Event{
		Provider:        domain.ProviderRazorpay,
		ProviderEventID: eventID,
		Type:            eventType,
		UserID:          readNote(payment.Notes, orderdomain.NoteUserID),
		OrderID:         strings.TrimSpace(payment.OrderID),
		PaymentID:       paymentID,
		Amount:          payment.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(payment.Currency)),
		OccurredAt:      occurredAt,
		RawPayload:      payload,
	}, nil
}

// readNote extracts a note value. Razorpay sends notes as an object, or as an
// empty array when the order had none.
func readNote(raw json.RawMessage, key string) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return ""
	}
	var notes map[string]any
	if err := json.Unmarshal(raw, &notes); err != nil {
		return ""
	}
	value, ok := notes[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
