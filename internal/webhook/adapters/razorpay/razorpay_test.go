package razorpay

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/smallbiznis/checkoutrelay/internal/webhook/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capturedPayload = `{"entity":"event","account_id":"acc_1","event":"payment.captured","contains":["payment"],"payload":{"payment":{"entity":{"id":"pay_29QQoUBi66xm2f","entity":"payment","amount":9000,"currency":"INR","status":"captured","order_id":"order_9A33XWu170gUtm","notes":{"clerkUserId":"user_2abc","firstOrderDiscountApplied":"true","discountPaise":"1000","percent":"10"}}}},"created_at":1709294400}`

func TestVerifySignature(t *testing.T) {
	secret := "rzp_webhook_secret"
	payload := []byte(capturedPayload)
	adapter := New(secret)

	headers := http.Header{}
	headers.Set("X-Razorpay-Signature", Signature(payload, secret))
	assert.NoError(t, adapter.Verify(context.Background(), payload, headers))

	headers.Set("X-Razorpay-Signature", Signature(payload, "wrong"))
	assert.ErrorIs(t, adapter.Verify(context.Background(), payload, headers), domain.ErrInvalidSignature)

	headers.Del("X-Razorpay-Signature")
	assert.ErrorIs(t, adapter.Verify(context.Background(), payload, headers), domain.ErrInvalidSignature)
}

func TestVerifySignatureDetectsAnySingleByteFlip(t *testing.T) {
	secret := "rzp_webhook_secret"
	payload := []byte(capturedPayload)
	signature := Signature(payload, secret)

	for i := range payload {
		tampered := append([]byte(nil), payload...)
		tampered[i] ^= 0x01
		if VerifySignature(tampered, signature, secret) {
			t.Fatalf("flipping byte %d still verified", i)
		}
	}
	assert.True(t, VerifySignature(payload, signature, secret))
}

func TestVerifySignatureNeedsRawBytes(t *testing.T) {
	secret := "rzp_webhook_secret"
	raw := []byte("{\n  \"event\": \"payment.captured\"\n}")
	compact := []byte(`{"event":"payment.captured"}`)

	assert.False(t, VerifySignature(compact, Signature(raw, secret), secret))
}

func TestVerifyWithoutSecretFailsClosed(t *testing.T) {
	payload := []byte(capturedPayload)
	headers := http.Header{}
	headers.Set("X-Razorpay-Signature", Signature(payload, ""))
	assert.ErrorIs(t, New("").Verify(context.Background(), payload, headers), domain.ErrInvalidSignature)
}

func TestParsePaymentCaptured(t *testing.T) {
	headers := http.Header{}
	headers.Set("X-Razorpay-Event-Id", "evt_123")

	event, err := New("secret").Parse(context.Background(), []byte(capturedPayload), headers)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderRazorpay, event.Provider)
	assert.Equal(t, "evt_123", event.ProviderEventID)
	assert.Equal(t, domain.EventTypePaymentCaptured, event.Type)
	assert.Equal(t, "user_2abc", event.UserID)
	assert.Equal(t, "order_9A33XWu170gUtm", event.OrderID)
	assert.Equal(t, "pay_29QQoUBi66xm2f", event.PaymentID)
	assert.EqualValues(t, 9000, event.Amount)
	assert.Equal(t, "INR", event.Currency)
	assert.Equal(t, time.Unix(1709294400, 0).UTC(), event.OccurredAt)
}

func TestParseFallsBackToPaymentIDForEventID(t *testing.T) {
	event, err := New("secret").Parse(context.Background(), []byte(capturedPayload), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, "payment.captured:pay_29QQoUBi66xm2f", event.ProviderEventID)
}

func TestParseToleratesEmptyNotes(t *testing.T) {
	payload := `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","amount":100,"currency":"inr","notes":[]}}}}`
	event, err := New("secret").Parse(context.Background(), []byte(payload), http.Header{})
	require.NoError(t, err)
	assert.Empty(t, event.UserID)
	assert.Equal(t, "INR", event.Currency)
}

func TestParseIgnoresOtherEvents(t *testing.T) {
	_, err := New("secret").Parse(context.Background(), []byte(`{"event":"payment.authorized"}`), http.Header{})
	assert.ErrorIs(t, err, domain.ErrEventIgnored)

	_, err = New("secret").Parse(context.Background(), []byte(`{`), http.Header{})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = New("secret").Parse(context.Background(), []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{}}}}`), http.Header{})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}
