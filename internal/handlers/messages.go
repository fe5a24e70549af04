package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/services"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

// MessageHandler serves project conversation threads.
type MessageHandler struct {
	svc *services.MessageService
}

func NewMessageHandler(svc *services.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

type postMessageRequest struct {
	Message     string   `json:"message" validate:"required"`
	Attachments []string `json:"attachments" validate:"omitempty,max=10,dive,required,max=2048"`
}

// GET /api/projects/:id/messages
func (h *MessageHandler) List(c *gin.Context) {
	messages, err := h.svc.List(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, messages)
}

// POST /api/projects/:id/messages
func (h *MessageHandler) Post(c *gin.Context) {
	var req postMessageRequest
	if !bindAndValidate(c, &req) {
		return
	}
	message, err := h.svc.Post(requestContext(c), c.Param("id"), services.PostMessageInput{
		Message:     req.Message,
		Attachments: req.Attachments,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, message)
}

// POST /api/projects/:id/messages/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	updated, err := h.svc.MarkRead(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}
