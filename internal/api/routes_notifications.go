package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/handlers"
	"github.com/mdnaeem95/halaltech/internal/middleware"
)

// Notifications belong to the caller, so authentication is the only gate.
func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	notifications := api.Group("/notifications")
	{
		notifications.GET("", handler.List)
		notifications.POST("/read-all", handler.MarkAllRead)
		notifications.POST("/:id/read", handler.MarkRead)
	}
}

func registerRealtimeRoutes(r *gin.Engine, authenticator *middleware.Authenticator, handler *handlers.RealtimeHandler) {
	r.GET("/ws", middleware.Auth(authenticator), handler.Stream)
}
