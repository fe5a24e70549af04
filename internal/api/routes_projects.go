package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/handlers"
	"github.com/mdnaeem95/halaltech/internal/middleware"
	"github.com/mdnaeem95/halaltech/internal/permissions"
)

type projectHandlers struct {
	projects *handlers.ProjectHandler
	quotes   *handlers.QuoteHandler
	messages *handlers.MessageHandler
}

// registerProjectRoutes mounts projects with their quote, messages and
// assignments. Ownership checks live in the services.
func registerProjectRoutes(api *gin.RouterGroup, h projectHandlers, checker *permissions.Checker) {
	projects := api.Group("/projects")
	{
		projects.GET("", middleware.RequirePermission(checker, "project.view"), h.projects.List)
		projects.POST("", middleware.RequirePermission(checker, "project.create"), h.projects.Create)
		projects.GET("/:id", middleware.RequirePermission(checker, "project.view"), h.projects.Get)
		projects.PATCH("/:id", middleware.RequirePermission(checker, "project.manage"), h.projects.Update)
		projects.PATCH("/:id/status", middleware.RequirePermission(checker, "project.manage"), h.projects.UpdateStatus)
		projects.POST("/:id/cancel", middleware.RequirePermission(checker, "project.create"), h.projects.Cancel)

		projects.POST("/:id/assignments", middleware.RequirePermission(checker, "project.manage"), h.projects.Assign)
		projects.DELETE("/:id/assignments/:freelancerID", middleware.RequirePermission(checker, "project.manage"), h.projects.RemoveAssignment)

		projects.POST("/:id/quote", middleware.RequirePermission(checker, "quote.manage"), h.quotes.Create)
		projects.GET("/:id/quote", middleware.RequirePermission(checker, "quote.view"), h.quotes.Get)
		projects.PATCH("/:id/quote", middleware.RequirePermission(checker, "quote.respond"), h.quotes.Respond)

		projects.GET("/:id/messages", middleware.RequirePermission(checker, "message.view"), h.messages.List)
		projects.POST("/:id/messages", middleware.RequirePermission(checker, "message.send"), h.messages.Post)
		projects.POST("/:id/messages/read", middleware.RequirePermission(checker, "message.view"), h.messages.MarkRead)
	}
}
