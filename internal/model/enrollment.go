package model

import "time"

// Enrollment grants a user access to a course. Unique per (user, course).
type Enrollment struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	CourseID   int64     `json:"course_id"`
	EnrolledOn time.Time `json:"enrolled_on"`
}

// EnrollmentView is an enrollment with its course summary.
type EnrollmentView struct {
	ID         int64         `json:"id"`
	EnrolledOn time.Time     `json:"enrolled_on"`
	Course     CourseSummary `json:"course"`
}

// UserProgress records completion of one lesson. Unique per (user, lesson).
type UserProgress struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	CourseID    int64      `json:"course_id"`
	ModuleID    int64      `json:"module_id"`
	LessonID    int64      `json:"lesson_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

// ToggleLessonProgressRequest is the payload for POST /courses/:id/toggle_lesson_progress/.
type ToggleLessonProgressRequest struct {
	LessonID int64 `json:"lesson_id" binding:"required,min=1"`
}

// UpsertProgressRequest is the payload for POST /progress/.
type UpsertProgressRequest struct {
	CourseID  int64 `json:"courseId" binding:"required,min=1"`
	LessonID  int64 `json:"lessonId" binding:"required,min=1"`
	Completed *bool `json:"completed" binding:"required"`
}

// LessonRef identifies a lesson inside a progress entry.
type LessonRef struct {
	ID int64 `json:"id"`
}

// ProgressEntry is one lesson's progress in the per-course progress map.
type ProgressEntry struct {
	Lesson    LessonRef  `json:"lesson"`
	Completed bool       `json:"completed"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// CourseProgress is the caller's progress within one course.
type CourseProgress struct {
	CourseID int64          `json:"course_id"`
	Progress []UserProgress `json:"progress"`
}
