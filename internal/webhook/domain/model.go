package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord journals every verified webhook delivery so redeliveries can be
// acknowledged without repeating side effects.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:varchar(32);not null;uniqueIndex:ux_webhook_events_provider_event_id,priority:1"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_webhook_events_provider_event_id,priority:2"`
	EventType       string         `json:"event_type" gorm:"type:varchar(64);not null"`
	UserID          string         `json:"user_id" gorm:"type:varchar(255);index"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "webhook_events" }

const (
	ProviderClerk    = "clerk"
	ProviderRazorpay = "razorpay"
)

const (
	EventTypeUserCreated     = "user.created"
	EventTypePaymentCaptured = "payment.captured"
)

// Event is the canonical webhook event parsed by adapters.
type Event struct {
	Provider        string
	ProviderEventID string
	Type            string
	UserID          string
	OrderID         string
	PaymentID       string
	Amount          int64
	Currency        string
	OccurredAt      time.Time
	RawPayload      []byte
}
