package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shoplane/payments/internal/dispatch"
)

// Partner webhook requests are read in full before verification; the
// signature covers the body exactly as received.
const maxInboundBodyBytes = 1 << 20

func (s *Server) HandlePartnerWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxInboundBodyBytes))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sig := c.GetHeader(dispatch.HeaderSignature)
	result, err := s.verifier.HandlePartnerWebhook(c.Request.Context(), c.Param("id"), body, sig)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) HandleGatewayWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxInboundBodyBytes))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sig := c.GetHeader(dispatch.HeaderSignature)
	result, err := s.verifier.HandleGatewayWebhook(c.Request.Context(), body, sig)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
