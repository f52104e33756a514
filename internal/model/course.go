package model

import (
	"net/url"
	"strings"
	"time"
)

// Course is a purchasable (or free) unit of the catalog.
// A nil Price is treated as free.
type Course struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CategoryID   *int64    `json:"category_id"`
	Price        *Money    `json:"price"`
	ThumbnailURL *string   `json:"thumbnail"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsFree reports whether the course can be enrolled in without payment.
func (c *Course) IsFree() bool {
	return c.Price == nil || c.Price.IsZero()
}

// Module is an ordered section of a course.
type Module struct {
	ID          int64   `json:"id"`
	CourseID    int64   `json:"course_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Order       int     `json:"order"`
}

// Lesson is an ordered item of a module.
type Lesson struct {
	ID           int64   `json:"id"`
	ModuleID     int64   `json:"module_id"`
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	YoutubeURL   *string `json:"youtube_url"`
	ResourcesURL *string `json:"resources"`
	Order        int     `json:"order"`
}

// Video returns the embeddable YouTube URL for the lesson, or "" when the
// lesson has no recognizable video link.
func (l *Lesson) Video() string {
	if l.YoutubeURL == nil {
		return ""
	}
	return YoutubeEmbedURL(*l.YoutubeURL)
}

// YoutubeEmbedURL converts watch?v=ID and youtu.be/ID links to the embed form.
func YoutubeEmbedURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com":
		if strings.HasPrefix(u.Path, "/embed/") {
			id = strings.TrimPrefix(u.Path, "/embed/")
		} else {
			id = u.Query().Get("v")
		}
	}
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return "https://www.youtube.com/embed/" + id
}

// ─── Views ──────────────────────────────────────────────────────────────

// CourseSummary is the list view of a course.
type CourseSummary struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         *Category `json:"category"`
	Price            *Money    `json:"price"`
	ThumbnailURL     *string   `json:"thumbnail"`
	AverageRating    float64   `json:"average_rating"`
	EnrollmentsCount int       `json:"enrollments_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// LessonView is a lesson as rendered inside a course tree.
type LessonView struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Video     string  `json:"video"`
	Resources *string `json:"resources"`
	Order     int     `json:"order"`
}

// ModuleView is a module with its ordered lessons.
type ModuleView struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Order       int          `json:"order"`
	Lessons     []LessonView `json:"lessons"`
}

// CourseDetail is the detail view of a course with its module tree.
// Enrollment fields are filled only for authenticated callers.
type CourseDetail struct {
	CourseSummary
	Modules      []ModuleView   `json:"modules"`
	IsEnrolled   bool           `json:"is_enrolled"`
	UserProgress []UserProgress `json:"user_progress"`
}

// NewLessonView renders a lesson for the course tree.
func NewLessonView(l *Lesson) LessonView {
	return LessonView{
		ID:        l.ID,
		Title:     l.Title,
		Content:   l.Content,
		Video:     l.Video(),
		Resources: l.ResourcesURL,
		Order:     l.Order,
	}
}

// ─── Requests ───────────────────────────────────────────────────────────

// CourseRequest is the payload for creating or updating a course.
type CourseRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=255"`
	Description string `json:"description" binding:"required"`
	CategoryID  *int64 `json:"category_id" binding:"omitempty,min=1"`
	Price       *Money `json:"price"`
}

// ModuleRequest is the payload for creating or updating a module.
type ModuleRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=255"`
	Description *string `json:"description"`
	Order       int     `json:"order" binding:"min=0"`
}

// LessonRequest is the payload for creating or updating a lesson.
type LessonRequest struct {
	Title      string  `json:"title" binding:"required,min=1,max=255"`
	Content    string  `json:"content"`
	YoutubeURL *string `json:"youtube_url" binding:"omitempty,http_url"`
	Order      int     `json:"order" binding:"min=0"`
}

// CourseListFilter carries the optional list filters for courses.
type CourseListFilter struct {
	Search       string
	CategorySlug string
	Page         int
	PerPage      int
}
