package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/security"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

// SecurityHandler exposes the deployment security audit to admins.
type SecurityHandler struct {
	audit *security.AuditService
}

func NewSecurityHandler(audit *security.AuditService) *SecurityHandler {
	return &SecurityHandler{audit: audit}
}

// GET /api/admin/security/audit
func (h *SecurityHandler) Audit(c *gin.Context) {
	result := h.audit.Run(requestContext(c))
	response.Success(c, http.StatusOK, result)
}
