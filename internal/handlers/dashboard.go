package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/services"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

type DashboardHandler struct {
	svc *services.DashboardService
}

func NewDashboardHandler(svc *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// GET /api/admin/dashboard
func (h *DashboardHandler) Admin(c *gin.Context) {
	summary, err := h.svc.Admin(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// GET /api/dashboard
func (h *DashboardHandler) Client(c *gin.Context) {
	summary, err := h.svc.Client(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}
