package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwks"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/smallbiznis/checkoutrelay/internal/auth/domain"
	"github.com/smallbiznis/checkoutrelay/internal/cache"
	"github.com/smallbiznis/checkoutrelay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	jwkTTL = time.Hour
	leeway = 5 * time.Second
)

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

// Service verifies Clerk session tokens against the instance JWKS. Keys are
// cached by key id.
type Service struct {
	log  *zap.Logger
	keys cache.Cache[string, *clerk.JSONWebKey]

	decodeKeyID func(ctx context.Context, token string) (string, error)
	fetchKey    func(ctx context.Context, keyID string) (*clerk.JSONWebKey, error)
	verify      func(ctx context.Context, token string, key *clerk.JSONWebKey) (string, error)
}

func New(p Params) domain.Service {
	log := p.Log.Named("auth.service")
	svc := &Service{
		log:         log,
		keys:        cache.NewTTLCache[string, *clerk.JSONWebKey](),
		decodeKeyID: decodeKeyID,
		verify:      verifyToken,
	}

	secret := strings.TrimSpace(p.Cfg.Clerk.SecretKey)
	if secret == "" {
		log.Error("CLERK_SECRET_KEY not set, bearer authentication will reject every request")
		return svc
	}

	clientCfg := &clerk.ClientConfig{}
	clientCfg.Key = clerk.String(secret)
	if url := strings.TrimSpace(p.Cfg.Clerk.APIURL); url != "" {
		clientCfg.URL = clerk.String(url)
	}
	jwksClient := jwks.NewClient(clientCfg)
	svc.fetchKey = func(ctx context.Context, keyID string) (*clerk.JSONWebKey, error) {
		return jwt.GetJSONWebKey(ctx, &jwt.GetJSONWebKeyParams{
			KeyID:      keyID,
			JWKSClient: jwksClient,
		})
	}
	return svc
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Session, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrMissingToken
	}
	if s.fetchKey == nil {
		return nil, domain.ErrNotConfigured
	}

	keyID, err := s.decodeKeyID(ctx, token)
	if err != nil || keyID == "" {
		return nil, domain.ErrInvalidSession
	}

	key, err := s.key(ctx, keyID)
	if err != nil {
		return nil, err
	}

	subject, err := s.verify(ctx, token, key)
	if err != nil {
		s.log.Debug("session token rejected", zap.Error(err))
		return nil, domain.ErrInvalidSession
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, domain.ErrInvalidSession
	}
	return &domain.Session{UserID: subject}, nil
}

func (s *Service) key(ctx context.Context, keyID string) (*clerk.JSONWebKey, error) {
	if key, ok := s.keys.Get(keyID); ok {
		return key, nil
	}
	key, err := s.fetchKey(ctx, keyID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		s.log.Warn("jwks lookup failed", zap.String("kid", keyID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSession, err)
	}
	s.keys.Set(keyID, key, jwkTTL)
	return key, nil
}

func decodeKeyID(ctx context.Context, token string) (string, error) {
	claims, err := jwt.Decode(ctx, &jwt.DecodeParams{Token: token})
	if err != nil {
		return "", err
	}
	return claims.KeyID, nil
}

func verifyToken(ctx context.Context, token string, key *clerk.JSONWebKey) (string, error) {
	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{
		Token:  token,
		JWK:    key,
		Leeway: leeway,
	})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
