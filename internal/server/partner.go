package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	partnerdomain "github.com/shoplane/payments/internal/partner/domain"
	"github.com/shoplane/payments/pkg/db/pagination"
)

func (s *Server) RegisterPartner(c *gin.Context) {
	var req partnerdomain.RegisterPartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	registered, err := s.partnerSvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// The secret appears in this response and nowhere else, ever.
	c.JSON(http.StatusCreated, registered)
}

func (s *Server) ListPartners(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.partnerSvc.List(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetPartnerByID(c *gin.Context) {
	partner, err := s.partnerSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, partner)
}

func (s *Server) UpdatePartner(c *gin.Context) {
	var req partnerdomain.UpdatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.ID = c.Param("id")

	partner, err := s.partnerSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, partner)
}

func (s *Server) DeactivatePartner(c *gin.Context) {
	if err := s.partnerSvc.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

func (s *Server) ReactivatePartner(c *gin.Context) {
	if err := s.partnerSvc.Reactivate(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "active"})
}
