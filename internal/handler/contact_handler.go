package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/response"
	"github.com/stemsi/elearning-backend/internal/service"
	"github.com/stemsi/elearning-backend/internal/validator"
)

// ContactHandler handles the public contact form.
type ContactHandler struct {
	contactService *service.ContactService
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Create godoc
// POST /api/v1/contacts/
func (h *ContactHandler) Create(c *gin.Context) {
	var req model.ContactRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	contact, err := h.contactService.Create(c.Request.Context(), req)
	if err != nil {
		response.InternalError(c, err, "Failed to save contact")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"contact": contact})
}

// List godoc
// GET /api/v1/contacts/?page=1&per_page=20
func (h *ContactHandler) List(c *gin.Context) {
	contacts, pagination, err := h.contactService.List(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "per_page", 20))
	if err != nil {
		response.InternalError(c, err, "Failed to list contacts")
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"contacts": contacts}, pagination)
}
