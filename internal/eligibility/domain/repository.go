package domain

import "context"

// Store reads and writes eligibility records in the external profile store.
// A user without any record yields the zero Eligibility and no error.
type Store interface {
	Get(ctx context.Context, userID string) (Eligibility, error)
	Put(ctx context.Context, userID string, record Eligibility) error
}

// Locker serializes read-check-write sequences on the same key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
