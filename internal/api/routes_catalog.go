package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/handlers"
	"github.com/mdnaeem95/halaltech/internal/middleware"
	"github.com/mdnaeem95/halaltech/internal/permissions"
)

// registerCatalogRoutes exposes the catalog publicly; admins browsing with a
// token may also see inactive services.
func registerCatalogRoutes(public, api *gin.RouterGroup, handler *handlers.CatalogHandler, checker *permissions.Checker) {
	catalog := public.Group("/services")
	{
		catalog.GET("", handler.ListServices)
		catalog.GET("/:id", handler.GetService)
		catalog.GET("/:id/packages", handler.ListPackages)
	}

	manage := middleware.RequirePermission(checker, "catalog.manage")
	admin := api.Group("/admin", manage)
	{
		admin.POST("/services", handler.CreateService)
		admin.PATCH("/services/:id", handler.UpdateService)
		admin.DELETE("/services/:id", handler.DeactivateService)
		admin.POST("/services/:id/packages", handler.CreatePackage)
		admin.PATCH("/packages/:id", handler.UpdatePackage)
		admin.DELETE("/packages/:id", handler.DeactivatePackage)
	}
}
