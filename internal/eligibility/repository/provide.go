package repository

import (
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/smallbiznis/checkoutrelay/internal/config"
	"github.com/smallbiznis/checkoutrelay/internal/eligibility/domain"
	"go.uber.org/zap"
)

// Provide returns the Clerk-backed store, or an in-memory store when no
// Clerk secret key is configured.
func Provide(cfg config.Config, log *zap.Logger) domain.Store {
	key := strings.TrimSpace(cfg.Clerk.SecretKey)
	if key == "" {
		log.Named("eligibility.repository").Error("CLERK_SECRET_KEY not set, eligibility is kept in memory only")
		return NewMemoryStore()
	}

	clientCfg := &clerk.ClientConfig{}
	clientCfg.Key = clerk.String(key)
	if url := strings.TrimSpace(cfg.Clerk.APIURL); url != "" {
		clientCfg.URL = clerk.String(url)
	}
	return NewClerkStore(user.NewClient(clientCfg))
}
