package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscountFloors(t *testing.T) {
	tests := []struct {
		subtotal int64
		percent  int
		want     int64
	}{
		{subtotal: 10000, percent: 10, want: 1000},
		{subtotal: 999, percent: 10, want: 99},
		{subtotal: 9, percent: 10, want: 0},
		{subtotal: 1, percent: 100, want: 1},
		{subtotal: 12345, percent: 15, want: 1851},
		{subtotal: 0, percent: 10, want: 0},
		{subtotal: 100, percent: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Discount(tt.subtotal, tt.percent), "subtotal=%d percent=%d", tt.subtotal, tt.percent)
	}
}

func TestDiscountNeverExceedsSubtotal(t *testing.T) {
	for subtotal := int64(1); subtotal <= 2000; subtotal++ {
		for _, percent := range []int{1, 10, 33, 99, 100} {
			d := Discount(subtotal, percent)
			assert.GreaterOrEqual(t, subtotal-d, int64(0))
			want := int64(math.Floor(float64(subtotal) * float64(percent) / 100))
			if d != want {
				t.Fatalf("subtotal=%d percent=%d: got %d want %d", subtotal, percent, d, want)
			}
		}
	}
}

func TestNotesMap(t *testing.T) {
	notes := Notes{UserID: "user_1", DiscountApplied: true, DiscountAmount: 1000, Percent: 10}
	assert.Equal(t, map[string]string{
		"clerkUserId":               "user_1",
		"firstOrderDiscountApplied": "true",
		"discountPaise":             "1000",
		"percent":                   "10",
	}, notes.Map())
}
