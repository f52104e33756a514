package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/elearning-backend/internal/middleware"
	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/response"
	"github.com/stemsi/elearning-backend/internal/service"
	"github.com/stemsi/elearning-backend/internal/validator"
)

// CatalogHandler handles categories, courses, modules and lessons.
type CatalogHandler struct {
	catalogService *service.CatalogService
	mediaService   *service.MediaService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService *service.CatalogService, mediaService *service.MediaService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		mediaService:   mediaService,
	}
}

// ─── Categories ─────────────────────────────────────────────────────────

// ListCategories godoc
// GET /api/v1/categories/
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		response.InternalError(c, err, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	response.Success(c, http.StatusOK, gin.H{"categories": categories})
}

// GetCategory godoc
// GET /api/v1/categories/:id/
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	category, err := h.catalogService.GetCategory(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "Failed to load category")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"category": category})
}

// CreateCategory godoc
// POST /api/v1/categories/
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req model.CategoryRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	category, err := h.catalogService.CreateCategory(c.Request.Context(), req)
	if err != nil {
		fail(c, err, "Failed to create category")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"category": category})
}

// UpdateCategory godoc
// PUT /api/v1/categories/:id/
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.CategoryRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	category, err := h.catalogService.UpdateCategory(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err, "Failed to update category")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"category": category})
}

// DeleteCategory godoc
// DELETE /api/v1/categories/:id/
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteCategory(c.Request.Context(), id); err != nil {
		fail(c, err, "Failed to delete category")
		return
	}
	c.Status(http.StatusNoContent)
}

// ─── Courses ────────────────────────────────────────────────────────────

// ListCourses godoc
// GET /api/v1/courses/?page=1&per_page=20&search=go&category=backend
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	courses, pagination, err := h.catalogService.ListCourses(c.Request.Context(), model.CourseListFilter{
		Search:       c.Query("search"),
		CategorySlug: c.Query("category"),
		Page:         queryInt(c, "page", 1),
		PerPage:      queryInt(c, "per_page", 20),
	})
	if err != nil {
		response.InternalError(c, err, "Failed to list courses")
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"courses": courses}, pagination)
}

// GetCourse godoc
// GET /api/v1/courses/:id/
// Public. Authenticated callers also get is_enrolled and user_progress.
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	detail, err := h.catalogService.GetCourseDetail(c.Request.Context(), id, middleware.GetPrincipal(c))
	if err != nil {
		fail(c, err, "Failed to load course")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"course": detail})
}

// CreateCourse godoc
// POST /api/v1/courses/
func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	var req model.CourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	course, err := h.catalogService.CreateCourse(c.Request.Context(), req)
	if err != nil {
		fail(c, err, "Failed to create course")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"course": course})
}

// UpdateCourse godoc
// PUT /api/v1/courses/:id/
func (h *CatalogHandler) UpdateCourse(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.CourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	course, err := h.catalogService.UpdateCourse(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err, "Failed to update course")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"course": course})
}

// DeleteCourse godoc
// DELETE /api/v1/courses/:id/
// Courses with payments cannot be deleted.
func (h *CatalogHandler) DeleteCourse(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteCourse(c.Request.Context(), id); err != nil {
		fail(c, err, "Failed to delete course")
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadThumbnail godoc
// POST /api/v1/courses/:id/thumbnail/
// Multipart field "file"; images only.
func (h *CatalogHandler) UploadThumbnail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if _, err := h.catalogService.GetCourse(c.Request.Context(), id); err != nil {
		fail(c, err, "Failed to load course")
		return
	}

	url, ok := h.saveUpload(c, service.MediaThumbnail)
	if !ok {
		return
	}
	if err := h.catalogService.SetCourseThumbnail(c.Request.Context(), id, url); err != nil {
		fail(c, err, "Failed to set thumbnail")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"url": url})
}

// ─── Modules ────────────────────────────────────────────────────────────

// ListModules godoc
// GET /api/v1/courses/:id/modules/
func (h *CatalogHandler) ListModules(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}
	modules, err := h.catalogService.ListModules(c.Request.Context(), courseID)
	if err != nil {
		fail(c, err, "Failed to list modules")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"modules": modules})
}

// CreateModule godoc
// POST /api/v1/courses/:id/modules/
func (h *CatalogHandler) CreateModule(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.ModuleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	module, err := h.catalogService.CreateModule(c.Request.Context(), courseID, req)
	if err != nil {
		fail(c, err, "Failed to create module")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"module": module})
}

// GetModule godoc
// GET /api/v1/modules/:id/
func (h *CatalogHandler) GetModule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	module, err := h.catalogService.GetModule(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "Failed to load module")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"module": module})
}

// UpdateModule godoc
// PUT /api/v1/modules/:id/
func (h *CatalogHandler) UpdateModule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.ModuleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	module, err := h.catalogService.UpdateModule(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err, "Failed to update module")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"module": module})
}

// DeleteModule godoc
// DELETE /api/v1/modules/:id/
func (h *CatalogHandler) DeleteModule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteModule(c.Request.Context(), id); err != nil {
		fail(c, err, "Failed to delete module")
		return
	}
	c.Status(http.StatusNoContent)
}

// ─── Lessons ────────────────────────────────────────────────────────────

// ListLessons godoc
// GET /api/v1/modules/:id/lessons/
func (h *CatalogHandler) ListLessons(c *gin.Context) {
	moduleID, ok := paramID(c, "id")
	if !ok {
		return
	}
	lessons, err := h.catalogService.ListLessons(c.Request.Context(), moduleID)
	if err != nil {
		fail(c, err, "Failed to list lessons")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"lessons": lessons})
}

// CreateLesson godoc
// POST /api/v1/modules/:id/lessons/
func (h *CatalogHandler) CreateLesson(c *gin.Context) {
	moduleID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.LessonRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lesson, err := h.catalogService.CreateLesson(c.Request.Context(), moduleID, req)
	if err != nil {
		fail(c, err, "Failed to create lesson")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"lesson": lesson})
}

// GetLesson godoc
// GET /api/v1/lessons/:id/
func (h *CatalogHandler) GetLesson(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	lesson, err := h.catalogService.GetLesson(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "Failed to load lesson")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"lesson": lesson})
}

// UpdateLesson godoc
// PUT /api/v1/lessons/:id/
func (h *CatalogHandler) UpdateLesson(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.LessonRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lesson, err := h.catalogService.UpdateLesson(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err, "Failed to update lesson")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"lesson": lesson})
}

// DeleteLesson godoc
// DELETE /api/v1/lessons/:id/
func (h *CatalogHandler) DeleteLesson(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteLesson(c.Request.Context(), id); err != nil {
		fail(c, err, "Failed to delete lesson")
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadResources godoc
// POST /api/v1/lessons/:id/resources/
// Multipart field "file"; documents and images.
func (h *CatalogHandler) UploadResources(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if _, err := h.catalogService.GetLesson(c.Request.Context(), id); err != nil {
		fail(c, err, "Failed to load lesson")
		return
	}

	url, ok := h.saveUpload(c, service.MediaResource)
	if !ok {
		return
	}
	if err := h.catalogService.SetLessonResources(c.Request.Context(), id, url); err != nil {
		fail(c, err, "Failed to set lesson resources")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"url": url})
}

func (h *CatalogHandler) saveUpload(c *gin.Context, kind service.MediaKind) (string, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return "", false
	}
	defer file.Close()

	url, err := h.mediaService.SaveUpload(kind, file, header)
	if err != nil {
		fail(c, err, "Failed to save upload")
		return "", false
	}
	return url, true
}
