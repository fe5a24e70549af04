package handlers

import (
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/middleware"
	"github.com/mdnaeem95/halaltech/internal/realtime"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

// RealtimeHandler upgrades authenticated requests to the realtime hub.
type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// GET /ws?token=&streams=notifications,projects
//
// Without a streams parameter the connection joins every stream its role allows.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	profileID := c.GetString(middleware.CtxProfileIDKey)
	if profileID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	allowed := realtime.StreamsForRole(c.GetString(middleware.CtxRoleKey))
	streams := splitList(c.Query("streams"))
	if len(streams) == 0 {
		for stream := range allowed {
			streams = append(streams, stream)
		}
		sort.Strings(streams)
	}

	h.hub.Serve(profileID, streams, allowed, c.Writer, c.Request)
}
