package service

import (
	"context"
	"time"

	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/repository"
)

// The stores below are the data access each service needs. The concrete
// repositories in internal/repository satisfy them; tests use in-memory fakes.
// Lookups of missing rows return pgx.ErrNoRows.

type UserStore interface {
	Create(ctx context.Context, u *model.UserAccount) error
	GetByID(ctx context.Context, id int64) (*model.UserAccount, error)
	GetByEmail(ctx context.Context, email string) (*model.UserAccount, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type CategoryStore interface {
	List(ctx context.Context) ([]model.Category, error)
	GetByID(ctx context.Context, id int64) (*model.Category, error)
	Create(ctx context.Context, c *model.Category) error
	Update(ctx context.Context, c *model.Category) error
	Delete(ctx context.Context, id int64) error
}

type CourseStore interface {
	List(ctx context.Context, f model.CourseListFilter, limit, offset int) ([]model.CourseSummary, int, error)
	GetSummary(ctx context.Context, id int64) (*model.CourseSummary, error)
	GetByID(ctx context.Context, id int64) (*model.Course, error)
	Create(ctx context.Context, c *model.Course) error
	Update(ctx context.Context, c *model.Course) error
	SetThumbnail(ctx context.Context, id int64, url string) error
	Delete(ctx context.Context, id int64) error
}

type ModuleStore interface {
	ListByCourse(ctx context.Context, courseID int64) ([]model.Module, error)
	GetModule(ctx context.Context, id int64) (*model.Module, error)
	CreateModule(ctx context.Context, m *model.Module) error
	UpdateModule(ctx context.Context, m *model.Module) error
	DeleteModule(ctx context.Context, id int64) (int64, error)

	ListLessons(ctx context.Context, moduleID int64) ([]model.Lesson, error)
	ListLessonsByCourse(ctx context.Context, courseID int64) ([]model.Lesson, error)
	GetLesson(ctx context.Context, id int64) (*model.Lesson, error)
	GetLessonInCourse(ctx context.Context, courseID, lessonID int64) (*model.Lesson, error)
	CourseIDOfLesson(ctx context.Context, lessonID int64) (int64, error)
	CreateLesson(ctx context.Context, l *model.Lesson) error
	UpdateLesson(ctx context.Context, l *model.Lesson) error
	SetLessonResources(ctx context.Context, id int64, url string) error
	DeleteLesson(ctx context.Context, id int64) (int64, error)
}

type EnrollmentStore interface {
	GetOrCreate(ctx context.Context, userID, courseID int64) (*model.Enrollment, bool, error)
	Exists(ctx context.Context, userID, courseID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]model.EnrollmentView, error)

	ToggleProgress(ctx context.Context, userID, courseID, moduleID, lessonID int64) (*model.UserProgress, error)
	UpsertProgress(ctx context.Context, userID, courseID, moduleID, lessonID int64, completed bool) (*model.UserProgress, bool, error)
	ToggleProgressByID(ctx context.Context, userID, id int64) (*model.UserProgress, error)
	ListProgressByCourse(ctx context.Context, userID, courseID int64) ([]model.UserProgress, error)
	ListProgressByUser(ctx context.Context, userID int64) ([]model.UserProgress, error)
}

type RatingStore interface {
	HasRated(ctx context.Context, userID, courseID int64) (bool, error)
	Upsert(ctx context.Context, rr *model.ReviewRating) (bool, error)
}

// ContactStore is backed by the rating repository; both are small write-mostly tables.
type ContactStore interface {
	CreateContact(ctx context.Context, c *model.Contact) error
	ListContacts(ctx context.Context, limit, offset int) ([]model.Contact, int, error)
}

type AssessmentStore interface {
	List(ctx context.Context, userID int64, f model.AssessmentListFilter) ([]model.Assessment, error)
	GetByID(ctx context.Context, id int64) (*model.Assessment, error)
	Create(ctx context.Context, a *model.Assessment) error
	Update(ctx context.Context, a *model.Assessment) error
	Delete(ctx context.Context, id int64) error
}

type QuestionStore interface {
	ListByAssessment(ctx context.Context, assessmentID int64) ([]model.Question, error)
	GetQuestion(ctx context.Context, id int64) (*model.Question, error)
	CreateQuestion(ctx context.Context, q *model.Question) error
	UpdateQuestion(ctx context.Context, q *model.Question) error
	DeleteQuestion(ctx context.Context, id int64) error

	ListChoices(ctx context.Context, questionID int64) ([]model.Choice, error)
	GetChoice(ctx context.Context, id int64) (*model.Choice, error)
	CreateChoice(ctx context.Context, ch *model.Choice) error
	UpdateChoice(ctx context.Context, ch *model.Choice) error
	DeleteChoice(ctx context.Context, id int64) error
}

type AttemptStore interface {
	Create(ctx context.Context, a *model.UserAttempt, responses []model.ResponseInput) error
	CountByUserAndAssessment(ctx context.Context, userID, assessmentID int64) (int, error)
	ListByUser(ctx context.Context, userID int64) ([]model.UserAttempt, error)
	GetForUser(ctx context.Context, userID, id int64) (*model.UserAttempt, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id int64) (*model.Payment, error)
	GetByTxRefForUser(ctx context.Context, userID int64, txRef string) (*model.Payment, error)
	ListUnpaidByTxRef(ctx context.Context, txRef string) ([]model.Payment, error)
	GetView(ctx context.Context, userID, id int64) (*model.PaymentView, error)
	ConfirmAndEnroll(ctx context.Context, paymentID int64, externalID string) (*model.PaymentConfirmation, error)
	CountStaleUnpaid(ctx context.Context, before time.Time) ([]repository.StaleCount, error)
	CreateEvent(ctx context.Context, e *model.PaymentGatewayEvent) error
	ListEvents(ctx context.Context, limit, offset int) ([]model.PaymentGatewayEvent, int, error)
}

var (
	_ UserStore       = (*repository.UserRepository)(nil)
	_ CategoryStore   = (*repository.CategoryRepository)(nil)
	_ CourseStore     = (*repository.CourseRepository)(nil)
	_ ModuleStore     = (*repository.ModuleRepository)(nil)
	_ EnrollmentStore = (*repository.EnrollmentRepository)(nil)
	_ RatingStore     = (*repository.RatingRepository)(nil)
	_ AssessmentStore = (*repository.AssessmentRepository)(nil)
	_ QuestionStore   = (*repository.QuestionRepository)(nil)
	_ AttemptStore    = (*repository.AttemptRepository)(nil)
	_ PaymentStore    = (*repository.PaymentRepository)(nil)
)
