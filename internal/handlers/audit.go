package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/services"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(svc *services.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// GET /api/admin/audit
func (h *AuditHandler) List(c *gin.Context) {
	page, perPage := pageParams(c, 50, 200)

	filters := services.AuditFilters{
		ProfileID: strings.TrimSpace(c.Query("profile_id")),
		Action:    strings.TrimSpace(c.Query("action")),
		Result:    strings.TrimSpace(c.Query("result")),
		Resource:  strings.TrimSpace(c.Query("resource")),
		Since:     parseTimeQuery(c, "since"),
		Until:     parseTimeQuery(c, "until"),
	}

	logs, total, err := h.svc.List(requestContext(c), services.AuditListOptions{Page: page, PageSize: perPage, Filters: filters})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, logs, response.NewMeta(page, perPage, total))
}
