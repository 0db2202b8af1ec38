package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	deliverydomain "github.com/shoplane/payments/internal/delivery/domain"
	"github.com/shoplane/payments/pkg/db/pagination"
)

type listDeliveriesQuery struct {
	PartnerID string `form:"partner_id"`
	Event     string `form:"event"`
	Direction string `form:"direction"`
	Status    string `form:"status"`
	pagination.Pagination
}

type listDeliveriesResponse struct {
	pagination.PageInfo
	Attempts []deliverydomain.Attempt `json:"attempts"`
}

// ListDeliveries is the read-only audit surface over the attempt log. It is
// the recovery path after a partner's retry budget is exhausted.
func (s *Server) ListDeliveries(c *gin.Context) {
	var query listDeliveriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.attempts.List(c.Request.Context(), s.db, deliverydomain.ListFilter{
		PartnerID: query.PartnerID,
		Event:     query.Event,
		Direction: query.Direction,
		Status:    query.Status,
	}, query.Pagination)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(attempt *deliverydomain.Attempt) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        attempt.ID.String(),
			CreatedAt: attempt.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	attempts := make([]deliverydomain.Attempt, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		attempts = append(attempts, *item)
	}

	c.JSON(http.StatusOK, listDeliveriesResponse{
		PageInfo: *pageInfo,
		Attempts: attempts,
	})
}
