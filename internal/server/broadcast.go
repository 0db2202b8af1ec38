package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shoplane/payments/internal/event"
)

type broadcastRequest struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// BroadcastEvent is the manual replay hook: it re-runs fan-out for one event
// from operator input. The response acknowledges the fan-out, not per-partner
// outcomes; those live in the delivery log.
func (s *Server) BroadcastEvent(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if !event.Valid(req.Event) {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.dispatcher.Broadcast(c.Request.Context(), req.Event, req.Data); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "broadcast"})
}
