package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/shoplane/payments/internal/payment/domain"
)

func (s *Server) ProcessPayment(c *gin.Context) {
	var req paymentdomain.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.paymentSvc.ProcessPayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Declines are payment outcomes, not request failures.
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetPaymentByID(c *gin.Context) {
	tx, err := s.paymentSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

func (s *Server) RefundPayment(c *gin.Context) {
	var req paymentdomain.RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.TransactionID = c.Param("id")

	resp, err := s.paymentSvc.RefundPayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
