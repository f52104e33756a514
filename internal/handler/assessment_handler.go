package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/response"
	"github.com/stemsi/elearning-backend/internal/service"
	"github.com/stemsi/elearning-backend/internal/validator"
)

// AssessmentHandler handles assessments, their questions and choices.
type AssessmentHandler struct {
	assessmentService *service.AssessmentService
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(assessmentService *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: assessmentService}
}

// List godoc
// GET /api/v1/assessments/?assessment_type=quiz&lesson_id=N
func (h *AssessmentHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var filter model.AssessmentListFilter
	if t := c.Query("assessment_type"); t != "" {
		filter.Type = model.AssessmentType(t)
	}
	if id := int64(queryInt(c, "lesson_id", 0)); id > 0 {
		filter.LessonID = &id
	}

	assessments, err := h.assessmentService.List(c.Request.Context(), p, filter)
	if err != nil {
		response.InternalError(c, err, "Failed to list assessments")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assessments": assessments})
}

// Get godoc
// GET /api/v1/assessments/:id/
// Staff receive the answer key; students only assessments they are enrolled for.
func (h *AssessmentHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if p.IsStaff {
		view, err := h.assessmentService.StaffView(c.Request.Context(), id)
		if err != nil {
			fail(c, err, "Failed to load assessment")
			return
		}
		response.Success(c, http.StatusOK, gin.H{"assessment": view})
		return
	}

	view, err := h.assessmentService.StudentView(c.Request.Context(), p, id)
	if err != nil {
		fail(c, err, "Failed to load assessment")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assessment": view})
}

// Create godoc
// POST /api/v1/assessments/
func (h *AssessmentHandler) Create(c *gin.Context) {
	var req model.AssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	assessment, err := h.assessmentService.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err, "Failed to create assessment")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"assessment": assessment})
}

// Update godoc
// PUT /api/v1/assessments/:id/
func (h *AssessmentHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.AssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	assessment, err := h.assessmentService.Update(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err, "Failed to update assessment")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assessment": assessment})
}

// Delete godoc
// DELETE /api/v1/assessments/:id/
func (h *AssessmentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.assessmentService.Delete(c.Request.Context(), id); err != nil {
		fail(c, err, "Failed to delete assessment")
		return
	}
	c.Status(http.StatusNoContent)
}

// ─── Questions ──────────────────────────────────────────────────────────

// ListQuestions godoc
// GET /api/v1/assessments/:id/questions/
func (h *AssessmentHandler) ListQuestions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	questions, err := h.assessmentService.ListQuestions(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "Failed to list questions")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AddQuestion godoc
// POST /api/v1/assessments/:id/questions/
func (h *AssessmentHandler) AddQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.assessmentService.AddQuestion(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err, "Failed to add question")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// UpdateQuestion godoc
// PUT /api/v1/questions/:id/
func (h *AssessmentHandler) UpdateQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.assessmentService.UpdateQuestion(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err, "Failed to update question")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// DeleteQuestion godoc
// DELETE /api/v1/questions/:id/
func (h *AssessmentHandler) DeleteQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.assessmentService.DeleteQuestion(c.Request.Context(), id); err != nil {
		fail(c, err, "Failed to delete question")
		return
	}
	c.Status(http.StatusNoContent)
}

// ─── Choices ────────────────────────────────────────────────────────────

// ListChoices godoc
// GET /api/v1/questions/:id/choices/
func (h *AssessmentHandler) ListChoices(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	choices, err := h.assessmentService.ListChoices(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "Failed to list choices")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"choices": choices})
}

// AddChoice godoc
// POST /api/v1/questions/:id/choices/
func (h *AssessmentHandler) AddChoice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.ChoiceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	choice, err := h.assessmentService.AddChoice(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err, "Failed to add choice")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"choice": choice})
}

// UpdateChoice godoc
// PUT /api/v1/choices/:id/
func (h *AssessmentHandler) UpdateChoice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.ChoiceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	choice, err := h.assessmentService.UpdateChoice(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err, "Failed to update choice")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"choice": choice})
}

// DeleteChoice godoc
// DELETE /api/v1/choices/:id/
func (h *AssessmentHandler) DeleteChoice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.assessmentService.DeleteChoice(c.Request.Context(), id); err != nil {
		fail(c, err, "Failed to delete choice")
		return
	}
	c.Status(http.StatusNoContent)
}
