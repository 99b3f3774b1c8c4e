package domain

import "strconv"

// Notes are attached to the gateway order so the capture webhook can find the
// user again. Razorpay notes are flat string maps.
type Notes struct {
	UserID          string
	DiscountApplied bool
	DiscountAmount  int64
	Percent         int
}

const (
	NoteUserID          = "clerkUserId"
	NoteDiscountApplied = "firstOrderDiscountApplied"
	NoteDiscountAmount  = "discountPaise"
	NotePercent         = "percent"
)

func (n Notes) Map() map[string]string {
	return map[string]string{
		NoteUserID:          n.UserID,
		NoteDiscountApplied: strconv.FormatBool(n.DiscountApplied),
		NoteDiscountAmount:  strconv.FormatInt(n.DiscountAmount, 10),
		NotePercent:         strconv.Itoa(n.Percent),
	}
}

// GatewayOrder is what the gateway is asked to create. Amount is in minor units.
type GatewayOrder struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    Notes
}

type PriceOrderRequest struct {
	UserID   string
	Subtotal int64
	Receipt  string
}

type PriceOrderResponse struct {
	Order    map[string]any `json:"order"`
	Discount int64          `json:"discount"`
	Eligible bool           `json:"eligible"`
	Amount   int64          `json:"-"`
}

// Discount returns floor(subtotal*percent/100) for non-negative inputs.
func Discount(subtotal int64, percent int) int64 {
	if subtotal <= 0 || percent <= 0 {
		return 0
	}
	return subtotal * int64(percent) / 100
}
