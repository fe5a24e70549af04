package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/handlers"
	"github.com/mdnaeem95/halaltech/internal/middleware"
	"github.com/mdnaeem95/halaltech/internal/permissions"
)

// registerFreelancerRoutes splits the marketplace, which is public, from the
// provider's own onboarding endpoints under /freelancers/me.
func registerFreelancerRoutes(public, api *gin.RouterGroup, handler *handlers.FreelancerHandler, projects *handlers.ProjectHandler, checker *permissions.Checker) {
	onboard := middleware.RequirePermission(checker, "freelancer.onboard")

	api.POST("/freelancers/onboarding", onboard, handler.SubmitOnboarding)
	api.GET("/freelancers/me", onboard, handler.Me)
	api.PATCH("/freelancers/me/availability", onboard, handler.UpdateAvailability)
	api.GET("/freelancers/me/projects", middleware.RequirePermission(checker, "project.view"), projects.ListAssigned)

	public.GET("/freelancers", handler.Search)
	public.GET("/freelancers/:id", handler.GetListing)
}
