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

// EnrollmentService is the part of *service.EnrollmentService used here.
type EnrollmentService interface {
	Enroll(ctx context.Context, p service.Principal, courseID int64) (*model.Enrollment, bool, error)
	ListEnrollments(ctx context.Context, p service.Principal) ([]model.EnrollmentView, error)
	ToggleLessonProgress(ctx context.Context, p service.Principal, courseID, lessonID int64) (*model.UserProgress, error)
	CourseProgress(ctx context.Context, p service.Principal, courseID int64) (*model.CourseProgress, error)
	ProgressByCourse(ctx context.Context, p service.Principal) (map[string][]model.ProgressEntry, error)
	UpsertProgress(ctx context.Context, p service.Principal, req model.UpsertProgressRequest) (*model.UserProgress, bool, error)
	ToggleProgress(ctx context.Context, p service.Principal, id int64) (*model.UserProgress, error)
	HasRated(ctx context.Context, p service.Principal, courseID int64) (bool, error)
	Rate(ctx context.Context, p service.Principal, courseID int64, req model.RateCourseRequest, ip string) (*model.ReviewRating, error)
}

// EnrollmentHandler handles enrollment, lesson progress and ratings.
type EnrollmentHandler struct {
	enrollmentService EnrollmentService
}

// NewEnrollmentHandler creates a new EnrollmentHandler.
func NewEnrollmentHandler(enrollmentService EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentService: enrollmentService}
}

// Enroll godoc
// POST /api/v1/courses/:id/enroll/
// Free courses only; paid courses are enrolled through a payment.
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}

	enrollment, _, err := h.enrollmentService.Enroll(c.Request.Context(), p, courseID)
	if err != nil {
		fail(c, err, "Failed to enroll")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"status":     service.InitiationEnrolled,
		"enrollment": enrollment,
	})
}

// ListEnrollments godoc
// GET /api/v1/enrollments/
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	enrollments, err := h.enrollmentService.ListEnrollments(c.Request.Context(), p)
	if err != nil {
		response.InternalError(c, err, "Failed to list enrollments")
		return
	}
	if enrollments == nil {
		enrollments = []model.EnrollmentView{}
	}

	response.Success(c, http.StatusOK, gin.H{"enrollments": enrollments})
}

// ToggleLessonProgress godoc
// POST /api/v1/courses/:id/toggle_lesson_progress/
func (h *EnrollmentHandler) ToggleLessonProgress(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ToggleLessonProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	progress, err := h.enrollmentService.ToggleLessonProgress(c.Request.Context(), p, courseID, req.LessonID)
	if err != nil {
		fail(c, err, "Failed to toggle lesson progress")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"id":        progress.ID,
		"completed": progress.Completed,
		"lesson_id": progress.LessonID,
		"module_id": progress.ModuleID,
	})
}

// CourseProgress godoc
// GET /api/v1/courses/:id/progress/
func (h *EnrollmentHandler) CourseProgress(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}

	progress, err := h.enrollmentService.CourseProgress(c.Request.Context(), p, courseID)
	if err != nil {
		fail(c, err, "Failed to load progress")
		return
	}
	response.Success(c, http.StatusOK, progress)
}

// ListProgress godoc
// GET /api/v1/progress/
// Progress grouped by course id.
func (h *EnrollmentHandler) ListProgress(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	progress, err := h.enrollmentService.ProgressByCourse(c.Request.Context(), p)
	if err != nil {
		response.InternalError(c, err, "Failed to list progress")
		return
	}
	response.Success(c, http.StatusOK, progress)
}

// UpsertProgress godoc
// POST /api/v1/progress/
// 201 when a progress row was created, 200 when an existing one changed.
func (h *EnrollmentHandler) UpsertProgress(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.UpsertProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	progress, created, err := h.enrollmentService.UpsertProgress(c.Request.Context(), p, req)
	if err != nil {
		fail(c, err, "Failed to save progress")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"progress": progress})
}

// ToggleComplete godoc
// PUT /api/v1/progress/:id/toggle_complete/
func (h *EnrollmentHandler) ToggleComplete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	progress, err := h.enrollmentService.ToggleProgress(c.Request.Context(), p, id)
	if err != nil {
		fail(c, err, "Failed to toggle progress")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"progress": progress})
}

// HasRated godoc
// GET /api/v1/courses/:id/has_rated/
func (h *EnrollmentHandler) HasRated(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}

	rated, err := h.enrollmentService.HasRated(c.Request.Context(), p, courseID)
	if err != nil {
		fail(c, err, "Failed to check rating")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"has_rated": rated})
}

// Rate godoc
// POST /api/v1/courses/:id/rate/
// Creates or replaces the caller's rating. The client IP is stored.
func (h *EnrollmentHandler) Rate(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.RateCourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rating, err := h.enrollmentService.Rate(c.Request.Context(), p, courseID, req, c.ClientIP())
	if err != nil {
		fail(c, err, "Failed to save rating")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rating": rating})
}
