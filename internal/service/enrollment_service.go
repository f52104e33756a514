package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stemsi/elearning-backend/internal/model"
)

// EnrollmentService handles enrollments, lesson progress and course ratings.
type EnrollmentService struct {
	courses     CourseStore
	modules     ModuleStore
	enrollments EnrollmentStore
	ratings     RatingStore
}

// NewEnrollmentService creates a new EnrollmentService.
func NewEnrollmentService(
	courses CourseStore,
	modules ModuleStore,
	enrollments EnrollmentStore,
	ratings RatingStore,
) *EnrollmentService {
	return &EnrollmentService{
		courses:     courses,
		modules:     modules,
		enrollments: enrollments,
		ratings:     ratings,
	}
}

// Enroll gets or creates the principal's enrollment in a course. Paid
// courses are only enrolled through a confirmed payment, except for staff.
func (s *EnrollmentService) Enroll(ctx context.Context, p Principal, courseID int64) (*model.Enrollment, bool, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, false, notFound(err, ErrCourseNotFound)
	}
	if !course.IsFree() && !p.IsStaff {
		return nil, false, ErrPaymentRequired
	}

	e, created, err := s.enrollments.GetOrCreate(ctx, p.UserID, courseID)
	if err != nil {
		return nil, false, fmt.Errorf("enroll: %w", err)
	}
	return e, created, nil
}

// ListEnrollments returns the principal's enrollments.
func (s *EnrollmentService) ListEnrollments(ctx context.Context, p Principal) ([]model.EnrollmentView, error) {
	return s.enrollments.ListByUser(ctx, p.UserID)
}

// ToggleLessonProgress marks a lesson completed the first time and flips
// the flag on every later call.
func (s *EnrollmentService) ToggleLessonProgress(ctx context.Context, p Principal, courseID, lessonID int64) (*model.UserProgress, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	lesson, err := s.modules.GetLessonInCourse(ctx, courseID, lessonID)
	if err != nil {
		return nil, notFound(err, ErrLessonNotInCourse)
	}

	progress, err := s.enrollments.ToggleProgress(ctx, p.UserID, courseID, lesson.ModuleID, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("toggle progress: %w", err)
	}
	return progress, nil
}

// CourseProgress returns the principal's progress rows within a course.
func (s *EnrollmentService) CourseProgress(ctx context.Context, p Principal, courseID int64) (*model.CourseProgress, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	progress, err := s.enrollments.ListProgressByCourse(ctx, p.UserID, courseID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	if progress == nil {
		progress = []model.UserProgress{}
	}
	return &model.CourseProgress{CourseID: courseID, Progress: progress}, nil
}

// ProgressByCourse returns all of the principal's progress keyed by course id.
func (s *EnrollmentService) ProgressByCourse(ctx context.Context, p Principal) (map[string][]model.ProgressEntry, error) {
	rows, err := s.enrollments.ListProgressByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}

	result := make(map[string][]model.ProgressEntry)
	for _, row := range rows {
		key := strconv.FormatInt(row.CourseID, 10)
		result[key] = append(result[key], model.ProgressEntry{
			Lesson:    model.LessonRef{ID: row.LessonID},
			Completed: row.Completed,
			UpdatedAt: row.CompletedAt,
		})
	}
	return result, nil
}

// UpsertProgress sets a lesson's completion flag. created reports whether
// a new progress row was inserted.
func (s *EnrollmentService) UpsertProgress(ctx context.Context, p Principal, req model.UpsertProgressRequest) (*model.UserProgress, bool, error) {
	if _, err := s.courses.GetByID(ctx, req.CourseID); err != nil {
		return nil, false, notFound(err, ErrCourseNotFound)
	}
	lesson, err := s.modules.GetLessonInCourse(ctx, req.CourseID, req.LessonID)
	if err != nil {
		return nil, false, notFound(err, ErrLessonNotInCourse)
	}

	progress, created, err := s.enrollments.UpsertProgress(ctx, p.UserID, req.CourseID, lesson.ModuleID, lesson.ID, *req.Completed)
	if err != nil {
		return nil, false, fmt.Errorf("upsert progress: %w", err)
	}
	return progress, created, nil
}

// ToggleProgress flips a progress row owned by the principal.
func (s *EnrollmentService) ToggleProgress(ctx context.Context, p Principal, id int64) (*model.UserProgress, error) {
	progress, err := s.enrollments.ToggleProgressByID(ctx, p.UserID, id)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return progress, nil
}

// HasRated reports whether the principal already rated the course.
func (s *EnrollmentService) HasRated(ctx context.Context, p Principal, courseID int64) (bool, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return false, notFound(err, ErrCourseNotFound)
	}
	return s.ratings.HasRated(ctx, p.UserID, courseID)
}

// Rate creates or replaces the principal's rating of a course.
func (s *EnrollmentService) Rate(ctx context.Context, p Principal, courseID int64, req model.RateCourseRequest, ip string) (*model.ReviewRating, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}

	rr := &model.ReviewRating{
		CourseID: courseID,
		UserID:   p.UserID,
		Subject:  req.Subject,
		Review:   req.Review,
		Rating:   req.Rating,
		IP:       ip,
		Status:   true,
	}
	if _, err := s.ratings.Upsert(ctx, rr); err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}
	return rr, nil
}
