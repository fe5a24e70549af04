package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/handlers"
	"github.com/mdnaeem95/halaltech/internal/middleware"
	"github.com/mdnaeem95/halaltech/internal/permissions"
)

type adminHandlers struct {
	freelancers *handlers.FreelancerHandler
	seeds       *handlers.SeedHandler
	audit       *handlers.AuditHandler
	health      *handlers.HealthHandler
	dashboard   *handlers.DashboardHandler
	security    *handlers.SecurityHandler
}

func registerAdminRoutes(api *gin.RouterGroup, h adminHandlers, checker *permissions.Checker) {
	admin := api.Group("/admin")

	applications := admin.Group("/applications", middleware.RequirePermission(checker, "application.review"))
	{
		applications.GET("", h.freelancers.ListApplications)
		applications.POST("/:id/approve", h.freelancers.Approve)
		applications.POST("/:id/reject", h.freelancers.Reject)
	}

	admin.POST("/seed-freelancers", middleware.RequirePermission(checker, "marketplace.seed"), h.seeds.SeedFreelancers)
	admin.GET("/audit", middleware.RequirePermission(checker, "audit.view"), h.audit.List)
	admin.GET("/security/audit", middleware.RequirePermission(checker, "audit.view"), h.security.Audit)
	admin.GET("/dashboard", middleware.RequirePermission(checker, "dashboard.admin"), h.dashboard.Admin)
	admin.GET("/maintenance", middleware.RequirePermission(checker, "dashboard.admin"), h.health.Jobs)

	api.GET("/dashboard", middleware.RequirePermission(checker, "dashboard.client"), h.dashboard.Client)
}
