package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/services"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

// InvoiceHandler serves invoice listing and admin payment updates.
type InvoiceHandler struct {
	svc *services.InvoiceService
}

func NewInvoiceHandler(svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

type createInvoiceRequest struct {
	ProjectID string     `json:"project_id" validate:"required,uuid"`
	Amount    float64    `json:"amount" validate:"required,gt=0"`
	DueDate   *time.Time `json:"due_date"`
	Notes     string     `json:"notes"`
}

type updateInvoiceRequest struct {
	Status        string     `json:"status" validate:"required,oneof=pending paid cancelled"`
	PaidAt        *time.Time `json:"paid_at"`
	PaymentMethod *string    `json:"payment_method" validate:"omitempty,max=64"`
	Notes         *string    `json:"notes"`
}

// POST /api/admin/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req createInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	invoice, err := h.svc.Create(requestContext(c), services.CreateInvoiceInput{
		ProjectID: req.ProjectID,
		Amount:    req.Amount,
		DueDate:   req.DueDate,
		Notes:     req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, invoice)
}

// GET /api/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	overdue, err := parseOptionalBool(c, "overdue")
	if err != nil {
		response.Error(c, err)
		return
	}
	invoices, err := h.svc.List(requestContext(c), services.ListInvoicesOptions{
		Status:    strings.TrimSpace(c.Query("status")),
		Overdue:   overdue,
		ProjectID: strings.TrimSpace(c.Query("project_id")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invoices)
}

// GET /api/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invoice)
}

// PATCH /api/invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	var req updateInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	invoice, err := h.svc.Update(requestContext(c), c.Param("id"), services.UpdateInvoiceInput{
		Status:        req.Status,
		PaidAt:        req.PaidAt,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invoice)
}
