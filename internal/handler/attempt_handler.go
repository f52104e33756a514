package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/response"
	"github.com/stemsi/elearning-backend/internal/service"
	"github.com/stemsi/elearning-backend/internal/validator"
)

// AttemptService is the part of *service.AttemptService used here.
type AttemptService interface {
	Submit(ctx context.Context, p service.Principal, req model.CreateAttemptRequest) (*model.AttemptResult, error)
	List(ctx context.Context, p service.Principal) ([]model.UserAttempt, error)
	Get(ctx context.Context, p service.Principal, id int64) (*model.UserAttempt, error)
}

// AttemptHandler handles assessment submissions.
type AttemptHandler struct {
	attemptService AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// Submit godoc
// POST /api/v1/user-attempts/
// Grades the responses and stores the attempt in one transaction.
func (h *AttemptHandler) Submit(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.CreateAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), p, req)
	if err != nil {
		fail(c, err, "Failed to submit attempt")
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// List godoc
// GET /api/v1/user-attempts/
func (h *AttemptHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	attempts, err := h.attemptService.List(c.Request.Context(), p)
	if err != nil {
		response.InternalError(c, err, "Failed to list attempts")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// Get godoc
// GET /api/v1/user-attempts/:id/
func (h *AttemptHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), p, id)
	if err != nil {
		fail(c, err, "Failed to load attempt")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}
