package domain

import "context"

// Session is the verified identity behind a bearer token.
type Session struct {
	UserID string
}

type Service interface {
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
}
