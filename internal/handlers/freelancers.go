package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/services"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

// FreelancerHandler covers onboarding, the public marketplace and the admin
// review of applications.
type FreelancerHandler struct {
	svc *services.FreelancerService
}

func NewFreelancerHandler(svc *services.FreelancerService) *FreelancerHandler {
	return &FreelancerHandler{svc: svc}
}

type skillRequest struct {
	SkillName        string `json:"skill_name" validate:"required,max=100"`
	ProficiencyLevel string `json:"proficiency_level" validate:"omitempty,oneof=beginner intermediate advanced expert"`
	YearsExperience  int    `json:"years_experience" validate:"gte=0,lte=60"`
}

type availabilityRequest struct {
	DayOfWeek   int    `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime   string `json:"start_time" validate:"required,hhmm"`
	EndTime     string `json:"end_time" validate:"required,hhmm"`
	IsAvailable *bool  `json:"is_available"`
}

type onboardingRequest struct {
	Title              string                `json:"title" validate:"max=255"`
	Bio                string                `json:"bio" validate:"required"`
	HourlyRate         *float64              `json:"hourly_rate" validate:"required,gt=0"`
	YearsExperience    int                   `json:"years_experience" validate:"gte=0,lte=60"`
	Skills             []skillRequest        `json:"skills" validate:"required,min=1,dive"`
	Availability       []availabilityRequest `json:"availability" validate:"omitempty,dive"`
	PortfolioURL       string                `json:"portfolio_url" validate:"omitempty,url"`
	LinkedInURL        string                `json:"linkedin_url" validate:"omitempty,url"`
	GitHubURL          string                `json:"github_url" validate:"omitempty,url"`
	WebsiteURL         string                `json:"website_url" validate:"omitempty,url"`
	AvailabilityStatus string                `json:"availability_status" validate:"omitempty,oneof=available busy unavailable"`
}

type availabilityStatusRequest struct {
	AvailabilityStatus string `json:"availability_status" validate:"required,oneof=available busy unavailable"`
}

type rejectApplicationRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// POST /api/freelancers/onboarding
func (h *FreelancerHandler) SubmitOnboarding(c *gin.Context) {
	var req onboardingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.OnboardingInput{
		Title:              req.Title,
		Bio:                req.Bio,
		HourlyRate:         req.HourlyRate,
		YearsExperience:    req.YearsExperience,
		PortfolioURL:       req.PortfolioURL,
		LinkedInURL:        req.LinkedInURL,
		GitHubURL:          req.GitHubURL,
		WebsiteURL:         req.WebsiteURL,
		AvailabilityStatus: req.AvailabilityStatus,
	}
	for _, skill := range req.Skills {
		input.Skills = append(input.Skills, services.SkillInput{
			SkillName:        skill.SkillName,
			ProficiencyLevel: skill.ProficiencyLevel,
			YearsExperience:  skill.YearsExperience,
		})
	}
	for _, slot := range req.Availability {
		input.Availability = append(input.Availability, services.AvailabilityInput{
			DayOfWeek:   slot.DayOfWeek,
			StartTime:   slot.StartTime,
			EndTime:     slot.EndTime,
			IsAvailable: slot.IsAvailable,
		})
	}

	freelancer, err := h.svc.SubmitOnboarding(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, freelancer)
}

// GET /api/freelancers/me
func (h *FreelancerHandler) Me(c *gin.Context) {
	freelancer, err := h.svc.Me(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, freelancer)
}

// PATCH /api/freelancers/me/availability
func (h *FreelancerHandler) UpdateAvailability(c *gin.Context) {
	var req availabilityStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	freelancer, err := h.svc.UpdateAvailability(requestContext(c), req.AvailabilityStatus)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, freelancer)
}

// GET /api/freelancers
func (h *FreelancerHandler) Search(c *gin.Context) {
	minRating, err := parseOptionalFloat(c, "min_rating")
	if err != nil {
		response.Error(c, err)
		return
	}
	maxRate, err := parseOptionalFloat(c, "max_hourly_rate")
	if err != nil {
		response.Error(c, err)
		return
	}

	listings, err := h.svc.Search(requestContext(c), services.MarketplaceFilters{
		Skills:             splitList(c.Query("skills")),
		MinRating:          minRating,
		MaxHourlyRate:      maxRate,
		AvailabilityStatus: c.Query("availability_status"),
		SortBy:             c.Query("sort_by"),
		SortOrder:          c.Query("sort_order"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, listings)
}

// GET /api/freelancers/:id
func (h *FreelancerHandler) GetListing(c *gin.Context) {
	listing, err := h.svc.GetListing(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, listing)
}

// GET /api/admin/applications
func (h *FreelancerHandler) ListApplications(c *gin.Context) {
	applications, err := h.svc.ListApplications(requestContext(c), strings.TrimSpace(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, applications)
}

// POST /api/admin/applications/:id/approve
func (h *FreelancerHandler) Approve(c *gin.Context) {
	freelancer, err := h.svc.ApproveApplication(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, freelancer)
}

// POST /api/admin/applications/:id/reject
func (h *FreelancerHandler) Reject(c *gin.Context) {
	var req rejectApplicationRequest
	if !bindOptional(c, &req) {
		return
	}
	freelancer, err := h.svc.RejectApplication(requestContext(c), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, freelancer)
}
