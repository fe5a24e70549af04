package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/handlers"
)

// registerAuthRoutes mounts the public credential endpoints on auth, which
// carries the stricter rate limit, and the session endpoints on api.
func registerAuthRoutes(auth *gin.RouterGroup, api *gin.RouterGroup, handler *handlers.AuthHandler) {
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.POST("/refresh", handler.Refresh)

	api.GET("/auth/me", handler.Me)
	api.POST("/auth/logout", handler.Logout)
}
