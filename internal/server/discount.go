package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleDiscountStatus reports whether the caller's first-order discount can
// still be applied and how long it has left.
func (s *Server) HandleDiscountStatus(c *gin.Context) {
	status, err := s.eligibilitySvc.Status(c.Request.Context(), userIDFrom(c), s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
