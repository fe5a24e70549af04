package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/services"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

type createQuoteRequest struct {
	Amount       *float64   `json:"amount" validate:"omitempty,gt=0"`
	Deliverables []string   `json:"deliverables" validate:"omitempty,dive,required"`
	PaymentTerms string     `json:"payment_terms" validate:"max=255"`
	Timeline     string     `json:"timeline" validate:"max=64"`
	Notes        string     `json:"notes"`
	ValidUntil   *time.Time `json:"valid_until"`
}

type respondQuoteRequest struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
	Reason string `json:"reason" validate:"max=1000"`
}

// QuoteHandler issues quotes and records client responses.
type QuoteHandler struct {
	svc *services.QuoteService
}

func NewQuoteHandler(svc *services.QuoteService) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

// POST /api/projects/:id/quote
func (h *QuoteHandler) Create(c *gin.Context) {
	var req createQuoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	quote, err := h.svc.Create(requestContext(c), c.Param("id"), services.CreateQuoteInput{
		Amount:       req.Amount,
		Deliverables: req.Deliverables,
		PaymentTerms: req.PaymentTerms,
		Timeline:     req.Timeline,
		Notes:        req.Notes,
		ValidUntil:   req.ValidUntil,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, quote)
}

// GET /api/projects/:id/quote
func (h *QuoteHandler) Get(c *gin.Context) {
	quote, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, quote)
}

// PATCH /api/projects/:id/quote
func (h *QuoteHandler) Respond(c *gin.Context) {
	var req respondQuoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	result, err := h.svc.Respond(requestContext(c), c.Param("id"), services.RespondQuoteInput{
		Action: req.Action,
		Reason: req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
