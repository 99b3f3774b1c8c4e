package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/checkoutrelay/internal/auth/domain"
	eligibilitydomain "github.com/smallbiznis/checkoutrelay/internal/eligibility/domain"
	orderdomain "github.com/smallbiznis/checkoutrelay/internal/order/domain"
	webhookdomain "github.com/smallbiznis/checkoutrelay/internal/webhook/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrInternal           = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, message := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: message})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// mapError turns a domain error into the status and stable message the
// storefront sees. Causes stay in the logs.
func mapError(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "Internal error"
	case errors.Is(err, orderdomain.ErrInvalidAmount):
		return http.StatusBadRequest, "Bad subtotal"
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, orderdomain.ErrInvalidUser),
		errors.Is(err, eligibilitydomain.ErrInvalidUser):
		return http.StatusBadRequest, "Bad request"
	case errors.Is(err, webhookdomain.ErrInvalidSignature):
		return http.StatusBadRequest, "bad signature"
	case errors.Is(err, webhookdomain.ErrInvalidPayload),
		errors.Is(err, webhookdomain.ErrInvalidEvent):
		return http.StatusBadRequest, "bad payload"
	case errors.Is(err, authdomain.ErrMissingToken):
		return http.StatusUnauthorized, "Missing token"
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrNotConfigured):
		return http.StatusUnauthorized, "Invalid session"
	case errors.Is(err, webhookdomain.ErrProviderNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Upstream timeout"
	case errors.Is(err, eligibilitydomain.ErrProfileReadFailed),
		errors.Is(err, eligibilitydomain.ErrProfileUpdateFailed):
		return http.StatusBadGateway, "Profile unavailable"
	case errors.Is(err, orderdomain.ErrGatewayOrderFailed):
		return http.StatusBadGateway, "Order creation failed"
	case errors.Is(err, orderdomain.ErrGatewayNotReady),
		errors.Is(err, eligibilitydomain.ErrLockUnavailable),
		errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "Service unavailable"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

// classifyErrorForLog reports an error type and code for request logs.
func classifyErrorForLog(err error) (string, string) {
	status, _ := mapError(err)
	switch {
	case status == http.StatusUnauthorized:
		return "auth", errorCode(err)
	case status == http.StatusTooManyRequests:
		return "rate_limit", ErrRateLimited.Error()
	case status >= http.StatusInternalServerError:
		return "upstream", errorCode(err)
	default:
		return "client", errorCode(err)
	}
}

func errorCode(err error) string {
	for _, known := range []error{
		orderdomain.ErrInvalidAmount,
		orderdomain.ErrGatewayOrderFailed,
		orderdomain.ErrGatewayNotReady,
		eligibilitydomain.ErrProfileReadFailed,
		eligibilitydomain.ErrProfileUpdateFailed,
		eligibilitydomain.ErrLockUnavailable,
		authdomain.ErrMissingToken,
		authdomain.ErrInvalidSession,
		authdomain.ErrNotConfigured,
		webhookdomain.ErrInvalidSignature,
		webhookdomain.ErrInvalidPayload,
		webhookdomain.ErrProviderNotFound,
		ErrInvalidRequest,
		ErrServiceUnavailable,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ErrInternal.Error()
}
