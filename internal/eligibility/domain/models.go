package domain

import "time"

// DefaultPercent applies when a stored record carries no percent.
const DefaultPercent = 10

// Eligibility is the first-order discount record kept in the user's private
// profile metadata. Used only ever moves from false to true.
type Eligibility struct {
	Eligible  bool
	Used      bool
	ExpiresAt int64
	Percent   int
}

// Valid reports whether the discount can be applied at now. The window is
// half-open: at now == ExpiresAt the discount is already gone.
func (e Eligibility) Valid(now time.Time) bool {
	return e.Eligible && !e.Used && e.ExpiresAt > 0 && now.Unix() < e.ExpiresAt
}

// Consumable reports whether a verified capture may mark the record used.
// Expiry is deliberately not checked here.
func (e Eligibility) Consumable() bool {
	return e.Eligible && !e.Used
}

// Expired reports whether the window has closed at now.
func (e Eligibility) Expired(now time.Time) bool {
	return e.ExpiresAt > 0 && now.Unix() >= e.ExpiresAt
}

// StatusAt projects the record into the public status shape.
func (e Eligibility) StatusAt(now time.Time) Status {
	if !e.Valid(now) {
		return Status{}
	}
	percent := e.Percent
	if percent <= 0 {
		percent = DefaultPercent
	}
	return Status{
		Valid:       true,
		Percent:     percent,
		SecondsLeft: e.ExpiresAt - now.Unix(),
	}
}

type Status struct {
	Valid       bool  `json:"valid"`
	Percent     int   `json:"percent"`
	SecondsLeft int64 `json:"secondsLeft"`
}

type ConsumeResult struct {
	Consumed bool
	// Late is set when the record was consumed after its window closed.
	Late bool
}
