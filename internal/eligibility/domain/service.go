package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Grant(ctx context.Context, userID string, now time.Time) error
	Status(ctx context.Context, userID string, now time.Time) (Status, error)
	Eligibility(ctx context.Context, userID string) (Eligibility, error)
	Consume(ctx context.Context, userID string, now time.Time) (ConsumeResult, error)
}

var (
	ErrInvalidUser         = errors.New("invalid_user")
	ErrProfileReadFailed   = errors.New("profile_read_failed")
	ErrProfileUpdateFailed = errors.New("profile_update_failed")
	ErrLockUnavailable     = errors.New("lock_unavailable")
)
