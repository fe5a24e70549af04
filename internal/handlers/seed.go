package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/services"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

type SeedHandler struct {
	svc *services.SeedService
}

func NewSeedHandler(svc *services.SeedService) *SeedHandler {
	return &SeedHandler{svc: svc}
}

type seedFreelancersRequest struct {
	ClearExisting bool `json:"clearExisting"`
}

// POST /api/admin/seed-freelancers
func (h *SeedHandler) SeedFreelancers(c *gin.Context) {
	var req seedFreelancersRequest
	if !bindOptional(c, &req) {
		return
	}
	result, err := h.svc.SeedFreelancers(requestContext(c), req.ClearExisting)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
