package domain

import "errors"

var (
	ErrMissingToken   = errors.New("missing token")
	ErrInvalidSession = errors.New("invalid session")
	ErrNotConfigured  = errors.New("auth not configured")
)
