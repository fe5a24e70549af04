package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/handlers"
	"github.com/mdnaeem95/halaltech/internal/middleware"
	"github.com/mdnaeem95/halaltech/internal/permissions"
)

func registerProfileRoutes(api *gin.RouterGroup, handler *handlers.ProfileHandler, checker *permissions.Checker) {
	api.GET("/profile", handler.Get)
	api.PATCH("/profile", handler.Update)
	api.POST("/profile/password", handler.ChangePassword)

	admin := api.Group("/admin/profiles", middleware.RequirePermission(checker, "profile.manage"))
	{
		admin.GET("", handler.List)
		admin.GET("/:id", handler.GetByID)
		admin.PATCH("/:id", handler.AdminUpdate)
	}
}
