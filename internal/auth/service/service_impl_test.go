package service

import (
	"context"
	"errors"
	"testing"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/smallbiznis/checkoutrelay/internal/auth/domain"
	"github.com/smallbiznis/checkoutrelay/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(fetches *int) *Service {
	return &Service{
		log:  zap.NewNop(),
		keys: cache.NewTTLCache[string, *clerk.JSONWebKey](),
		decodeKeyID: func(ctx context.Context, token string) (string, error) {
			if token == "garbage" {
				return "", errors.New("malformed")
			}
			return "kid_1", nil
		},
		fetchKey: func(ctx context.Context, keyID string) (*clerk.JSONWebKey, error) {
			*fetches++
			return &clerk.JSONWebKey{}, nil
		},
		verify: func(ctx context.Context, token string, key *clerk.JSONWebKey) (string, error) {
			switch token {
			case "good":
				return "user_123", nil
			case "no-subject":
				return "", nil
			default:
				return "", errors.New("signature mismatch")
			}
		},
	}
}

func TestAuthenticate(t *testing.T) {
	fetches := 0
	svc := newTestService(&fetches)

	session, err := svc.Authenticate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "user_123", session.UserID)

	_, err = svc.Authenticate(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrMissingToken)

	_, err = svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	_, err = svc.Authenticate(context.Background(), "forged")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	_, err = svc.Authenticate(context.Background(), "no-subject")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestAuthenticateCachesKeys(t *testing.T) {
	fetches := 0
	svc := newTestService(&fetches)

	for i := 0; i < 3; i++ {
		_, err := svc.Authenticate(context.Background(), "good")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fetches)
}

func TestAuthenticateKeyLookupFailure(t *testing.T) {
	fetches := 0
	svc := newTestService(&fetches)
	svc.fetchKey = func(ctx context.Context, keyID string) (*clerk.JSONWebKey, error) {
		return nil, errors.New("jwks unavailable")
	}

	_, err := svc.Authenticate(context.Background(), "good")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestAuthenticateWithoutSecretKey(t *testing.T) {
	svc := New(Params{Log: zap.NewNop()})
	_, err := svc.Authenticate(context.Background(), "good")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}
