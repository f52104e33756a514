package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/response"
	"github.com/stemsi/elearning-backend/internal/service"
)

type stubEnrollments struct {
	enrollment *model.Enrollment
	progress   *model.UserProgress
	created    bool
	err        error

	gotPrincipal service.Principal
	gotUpsert    model.UpsertProgressRequest
	gotIP        string
}

func (s *stubEnrollments) Enroll(_ context.Context, p service.Principal, courseID int64) (*model.Enrollment, bool, error) {
	s.gotPrincipal = p
	return s.enrollment, s.created, s.err
}

func (s *stubEnrollments) ListEnrollments(context.Context, service.Principal) ([]model.EnrollmentView, error) {
	return nil, s.err
}

func (s *stubEnrollments) ToggleLessonProgress(_ context.Context, _ service.Principal, _, _ int64) (*model.UserProgress, error) {
	return s.progress, s.err
}

func (s *stubEnrollments) CourseProgress(_ context.Context, _ service.Principal, courseID int64) (*model.CourseProgress, error) {
	return &model.CourseProgress{CourseID: courseID, Progress: []model.UserProgress{}}, s.err
}

func (s *stubEnrollments) ProgressByCourse(context.Context, service.Principal) (map[string][]model.ProgressEntry, error) {
	return map[string][]model.ProgressEntry{}, s.err
}

func (s *stubEnrollments) UpsertProgress(_ context.Context, _ service.Principal, req model.UpsertProgressRequest) (*model.UserProgress, bool, error) {
	s.gotUpsert = req
	return s.progress, s.created, s.err
}

func (s *stubEnrollments) ToggleProgress(context.Context, service.Principal, int64) (*model.UserProgress, error) {
	return s.progress, s.err
}

func (s *stubEnrollments) HasRated(context.Context, service.Principal, int64) (bool, error) {
	return true, s.err
}

func (s *stubEnrollments) Rate(_ context.Context, _ service.Principal, courseID int64, req model.RateCourseRequest, ip string) (*model.ReviewRating, error) {
	s.gotIP = ip
	return &model.ReviewRating{CourseID: courseID, Rating: req.Rating}, s.err
}

func enrollmentRouter(svc *stubEnrollments, staff bool) *gin.Engine {
	h := NewEnrollmentHandler(svc)
	r := gin.New()
	g := r.Group("/", asUser(7, staff))
	g.GET("/enrollments/", h.ListEnrollments)
	g.POST("/courses/:id/enroll/", h.Enroll)
	g.POST("/courses/:id/toggle_lesson_progress/", h.ToggleLessonProgress)
	g.GET("/courses/:id/progress/", h.CourseProgress)
	g.POST("/courses/:id/rate/", h.Rate)
	g.GET("/progress/", h.ListProgress)
	g.POST("/progress/", h.UpsertProgress)
	return r
}

func TestEnroll_Created(t *testing.T) {
	svc := &stubEnrollments{enrollment: &model.Enrollment{ID: 1, UserID: 7, CourseID: 2}, created: true}

	w := do(enrollmentRouter(svc, false), http.MethodPost, "/courses/2/enroll/", "", "")

	require.Equal(t, http.StatusCreated, w.Code)
	var out struct {
		Status     string           `json:"status"`
		Enrollment model.Enrollment `json:"enrollment"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &out))
	assert.Equal(t, "enrolled", out.Status)
	assert.Equal(t, int64(2), out.Enrollment.CourseID)
	assert.Equal(t, int64(7), svc.gotPrincipal.UserID)
}

func TestEnroll_PaidCourse(t *testing.T) {
	w := do(enrollmentRouter(&stubEnrollments{err: service.ErrPaymentRequired}, false), http.MethodPost, "/courses/1/enroll/", "", "")
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, response.ErrPaymentRequired, errCode(t, w))
}

func TestEnroll_PassesStaffFlag(t *testing.T) {
	svc := &stubEnrollments{enrollment: &model.Enrollment{ID: 1}}
	do(enrollmentRouter(svc, true), http.MethodPost, "/courses/1/enroll/", "", "")
	assert.True(t, svc.gotPrincipal.IsStaff)
}

func TestListEnrollments_EmptyIsArray(t *testing.T) {
	w := do(enrollmentRouter(&stubEnrollments{}, false), http.MethodGet, "/enrollments/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"enrollments":[]}`, string(decode(t, w).Data))
}

func TestToggleLessonProgress_Shape(t *testing.T) {
	svc := &stubEnrollments{progress: &model.UserProgress{ID: 9, CourseID: 2, ModuleID: 3, LessonID: 4, Completed: true}}

	w := do(enrollmentRouter(svc, false), http.MethodPost, "/courses/2/toggle_lesson_progress/", gin.MIMEJSON, `{"lesson_id": 4}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":9,"completed":true,"lesson_id":4,"module_id":3}`, string(decode(t, w).Data))
}

func TestToggleLessonProgress_LessonOfOtherCourse(t *testing.T) {
	svc := &stubEnrollments{err: service.ErrLessonNotInCourse}
	w := do(enrollmentRouter(svc, false), http.MethodPost, "/courses/2/toggle_lesson_progress/", gin.MIMEJSON, `{"lesson_id": 40}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrLessonNotInCourse, errCode(t, w))
}

func TestUpsertProgress_StatusFollowsCreation(t *testing.T) {
	body := `{"courseId": 2, "lessonId": 4, "completed": false}`

	svc := &stubEnrollments{progress: &model.UserProgress{ID: 9}, created: true}
	w := do(enrollmentRouter(svc, false), http.MethodPost, "/progress/", gin.MIMEJSON, body)
	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.gotUpsert.Completed)
	assert.False(t, *svc.gotUpsert.Completed)

	svc.created = false
	w = do(enrollmentRouter(svc, false), http.MethodPost, "/progress/", gin.MIMEJSON, body)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpsertProgress_CompletedRequired(t *testing.T) {
	w := do(enrollmentRouter(&stubEnrollments{}, false), http.MethodPost, "/progress/", gin.MIMEJSON, `{"courseId": 2, "lessonId": 4}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrValidation, errCode(t, w))
}

func TestCourseProgress(t *testing.T) {
	w := do(enrollmentRouter(&stubEnrollments{}, false), http.MethodGet, "/courses/5/progress/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"course_id":5,"progress":[]}`, string(decode(t, w).Data))
}

func TestRate_RecordsClientIP(t *testing.T) {
	svc := &stubEnrollments{}
	req := newRequest(http.MethodPost, "/courses/2/rate/", gin.MIMEJSON, `{"rating": 4.5, "review": "clear"}`)
	req.RemoteAddr = "203.0.113.9:51000"

	w := serveRequest(enrollmentRouter(svc, false), req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "203.0.113.9", svc.gotIP)
}

func TestRate_OutOfRange(t *testing.T) {
	w := do(enrollmentRouter(&stubEnrollments{}, false), http.MethodPost, "/courses/2/rate/", gin.MIMEJSON, `{"rating": 6}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
