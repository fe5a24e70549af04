package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/services"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

// ProjectHandler exposes the project lifecycle endpoints.
type ProjectHandler struct {
	svc *services.ProjectService
}

func NewProjectHandler(svc *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

type createProjectRequest struct {
	Title        string         `json:"title" validate:"required,max=255"`
	Description  string         `json:"description" validate:"required"`
	ServiceID    string         `json:"service_id" validate:"omitempty,uuid"`
	PackageID    string         `json:"package_id" validate:"omitempty,uuid"`
	Requirements map[string]any `json:"requirements"`
	BudgetRange  string         `json:"budget_range" validate:"max=64"`
	Timeline     string         `json:"timeline" validate:"max=64"`
}

type updateProjectStatusRequest struct {
	Status string `json:"status" validate:"required,project_status"`
}

type updateProjectRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	FinalPrice  *float64   `json:"final_price" validate:"omitempty,gte=0"`
	Deadline    *time.Time `json:"deadline"`
}

type assignFreelancerRequest struct {
	FreelancerID string `json:"freelancer_id" validate:"required,uuid"`
	Role         string `json:"role" validate:"max=64"`
}

// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if !bindAndValidate(c, &req) {
		return
	}
	project, err := h.svc.Create(requestContext(c), services.CreateProjectInput{
		Title:        req.Title,
		Description:  req.Description,
		ServiceID:    req.ServiceID,
		PackageID:    req.PackageID,
		Requirements: req.Requirements,
		BudgetRange:  req.BudgetRange,
		Timeline:     req.Timeline,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, project)
}

// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.svc.List(requestContext(c), services.ListProjectsOptions{
		Status: strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, projects)
}

// GET /api/freelancers/me/projects
func (h *ProjectHandler) ListAssigned(c *gin.Context) {
	projects, err := h.svc.ListAssigned(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, projects)
}

// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// PATCH /api/projects/:id/status
func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	var req updateProjectStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	project, err := h.svc.UpdateStatus(requestContext(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// PATCH /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req updateProjectRequest
	if !bindAndValidate(c, &req) {
		return
	}
	project, err := h.svc.Update(requestContext(c), c.Param("id"), services.UpdateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		FinalPrice:  req.FinalPrice,
		Deadline:    req.Deadline,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// POST /api/projects/:id/cancel
func (h *ProjectHandler) Cancel(c *gin.Context) {
	project, err := h.svc.Cancel(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// POST /api/projects/:id/assignments
func (h *ProjectHandler) Assign(c *gin.Context) {
	var req assignFreelancerRequest
	if !bindAndValidate(c, &req) {
		return
	}
	assignment, err := h.svc.AssignFreelancer(requestContext(c), c.Param("id"), services.AssignFreelancerInput{
		FreelancerID: req.FreelancerID,
		Role:         req.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, assignment)
}

// DELETE /api/projects/:id/assignments/:freelancerID
func (h *ProjectHandler) RemoveAssignment(c *gin.Context) {
	if err := h.svc.RemoveAssignment(requestContext(c), c.Param("id"), c.Param("freelancerID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
