package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/checkoutrelay/internal/order/domain"
)

// maxExactSubtotal is the largest integer a JSON client can send without
// losing precision.
const maxExactSubtotal = 1<<53 - 1

type createOrderRequest struct {
	SubtotalInPaise json.RawMessage `json:"subtotalInPaise"`
	Receipt         string          `json:"receipt"`
}

func (s *Server) HandleCreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, orderdomain.ErrInvalidAmount)
		return
	}

	subtotal, ok := parseSubtotal(req.SubtotalInPaise)
	if !ok {
		AbortWithError(c, orderdomain.ErrInvalidAmount)
		return
	}

	resp, err := s.orderSvc.PriceOrder(c.Request.Context(), orderdomain.PriceOrderRequest{
		UserID:   userIDFrom(c),
		Subtotal: subtotal,
		Receipt:  req.Receipt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// parseSubtotal accepts JSON numbers with an integral value only. Strings,
// fractions and missing values are rejected.
func parseSubtotal(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	text := string(raw)
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v, v > 0 && v <= maxExactSubtotal
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f <= 0 || f > maxExactSubtotal {
		return 0, false
	}
	return int64(f), true
}
