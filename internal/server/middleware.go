package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/checkoutrelay/internal/auth/domain"
	"github.com/smallbiznis/checkoutrelay/internal/observability/logger"
	obscontext "github.com/smallbiznis/checkoutrelay/internal/observability/context"
	"go.uber.org/zap"
)

const (
	contextUserIDKey   = "user_id"
	contextProviderKey = "webhook_provider"
)

// AuthRequired verifies the Clerk session token in the Authorization header
// and stores the verified subject on the request.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, authdomain.ErrMissingToken)
			return
		}

		ctx := c.Request.Context()
		session, err := s.authSvc.Authenticate(ctx, token)
		if err != nil {
			logger.FromContext(ctx).Warn("session verification failed", zap.Error(err))
			if !errors.Is(err, authdomain.ErrMissingToken) && !errors.Is(err, authdomain.ErrInvalidSession) {
				err = fmt.Errorf("%w: %w", authdomain.ErrInvalidSession, err)
			}
			AbortWithError(c, err)
			return
		}
		if session == nil || strings.TrimSpace(session.UserID) == "" {
			AbortWithError(c, authdomain.ErrInvalidSession)
			return
		}

		c.Set(contextUserIDKey, session.UserID)
		c.Request = c.Request.WithContext(obscontext.WithUserID(ctx, session.UserID))
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func userIDFrom(c *gin.Context) string {
	return c.GetString(contextUserIDKey)
}
