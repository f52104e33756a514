package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/elearning-backend/internal/config"
	"github.com/stemsi/elearning-backend/internal/database"
	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/repository"
	"github.com/stemsi/elearning-backend/internal/response"
)

// CatalogService handles categories, courses, modules and lessons.
// The module/lesson tree of each course is cached in Redis and dropped on
// every write that touches the course.
type CatalogService struct {
	categories  CategoryStore
	courses     CourseStore
	modules     ModuleStore
	enrollments EnrollmentStore
	rdb         *redis.Client
	treeTTL     time.Duration
	log         zerolog.Logger
}

// NewCatalogService creates a new CatalogService. rdb may be nil, in which
// case the course tree is always read from the database.
func NewCatalogService(
	categories CategoryStore,
	courses CourseStore,
	modules ModuleStore,
	enrollments EnrollmentStore,
	rdb *redis.Client,
	treeTTL time.Duration,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		categories:  categories,
		courses:     courses,
		modules:     modules,
		enrollments: enrollments,
		rdb:         rdb,
		treeTTL:     treeTTL,
		log:         log.With().Str("component", "catalog").Logger(),
	}
}

// notFound maps pgx.ErrNoRows to the given sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}

// ─── Categories ─────────────────────────────────────────────────────────

// ListCategories returns every category ordered by name.
func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categories.List(ctx)
}

// GetCategory returns one category.
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return c, nil
}

// CreateCategory adds a category. Slugs are stored lowercased.
func (s *CatalogService) CreateCategory(ctx context.Context, req model.CategoryRequest) (*model.Category, error) {
	c := &model.Category{Name: req.Name, Slug: strings.ToLower(req.Slug)}
	if err := s.categories.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrSlugTaken) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// UpdateCategory renames a category.
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, req model.CategoryRequest) (*model.Category, error) {
	c := &model.Category{ID: id, Name: req.Name, Slug: strings.ToLower(req.Slug)}
	if err := s.categories.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrSlugTaken) {
			return nil, ErrSlugTaken
		}
		return nil, notFound(err, ErrNotFound)
	}
	return c, nil
}

// DeleteCategory removes a category. Its courses become uncategorized.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return notFound(s.categories.Delete(ctx, id), ErrNotFound)
}

// ─── Courses ────────────────────────────────────────────────────────────

// ListCourses returns a page of course summaries.
func (s *CatalogService) ListCourses(ctx context.Context, f model.CourseListFilter) ([]model.CourseSummary, *response.Pagination, error) {
	page, perPage := response.NormalizePage(f.Page, f.PerPage)
	f.Search = strings.TrimSpace(f.Search)
	f.CategorySlug = strings.ToLower(strings.TrimSpace(f.CategorySlug))

	courses, total, err := s.courses.List(ctx, f, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list courses: %w", err)
	}
	if courses == nil {
		courses = []model.CourseSummary{}
	}
	return courses, response.NewPagination(page, perPage, total), nil
}

// GetCourseDetail returns a course with its module tree. When p is not nil
// the enrollment flag and the caller's progress are filled in.
func (s *CatalogService) GetCourseDetail(ctx context.Context, id int64, p *Principal) (*model.CourseDetail, error) {
	summary, err := s.courses.GetSummary(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}

	tree, err := s.courseTree(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &model.CourseDetail{
		CourseSummary: *summary,
		Modules:       tree,
		UserProgress:  []model.UserProgress{},
	}
	if p == nil {
		return detail, nil
	}

	detail.IsEnrolled, err = s.enrollments.Exists(ctx, p.UserID, id)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	progress, err := s.enrollments.ListProgressByCourse(ctx, p.UserID, id)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	if progress != nil {
		detail.UserProgress = progress
	}
	return detail, nil
}

// GetCourse returns the raw course row.
func (s *CatalogService) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	c, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	return c, nil
}

// CreateCourse adds a course.
func (s *CatalogService) CreateCourse(ctx context.Context, req model.CourseRequest) (*model.Course, error) {
	if req.Price != nil && req.Price.IsNegative() {
		return nil, ErrNegativePrice
	}
	c := &model.Course{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Price:       req.Price,
	}
	if err := s.courses.Create(ctx, c); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("create course: %w", err)
	}
	return c, nil
}

// UpdateCourse replaces a course's editable fields.
func (s *CatalogService) UpdateCourse(ctx context.Context, id int64, req model.CourseRequest) (*model.Course, error) {
	if req.Price != nil && req.Price.IsNegative() {
		return nil, ErrNegativePrice
	}
	c := &model.Course{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Price:       req.Price,
	}
	if err := s.courses.Update(ctx, c); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, notFound(err, ErrCourseNotFound)
	}
	s.invalidateTree(ctx, id)
	return c, nil
}

// SetCourseThumbnail stores the uploaded thumbnail URL.
func (s *CatalogService) SetCourseThumbnail(ctx context.Context, id int64, url string) error {
	return notFound(s.courses.SetThumbnail(ctx, id, url), ErrCourseNotFound)
}

// DeleteCourse removes a course. Courses with payments on record cannot be deleted.
func (s *CatalogService) DeleteCourse(ctx context.Context, id int64) error {
	if err := s.courses.Delete(ctx, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrDependencyExists
		}
		return notFound(err, ErrCourseNotFound)
	}
	s.invalidateTree(ctx, id)
	return nil
}

// ─── Modules ────────────────────────────────────────────────────────────

// ListModules returns a course's modules in order.
func (s *CatalogService) ListModules(ctx context.Context, courseID int64) ([]model.Module, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	return s.modules.ListByCourse(ctx, courseID)
}

// GetModule returns one module.
func (s *CatalogService) GetModule(ctx context.Context, id int64) (*model.Module, error) {
	m, err := s.modules.GetModule(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return m, nil
}

// CreateModule adds a module to a course.
func (s *CatalogService) CreateModule(ctx context.Context, courseID int64, req model.ModuleRequest) (*model.Module, error) {
	m := &model.Module{
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		Order:       req.Order,
	}
	if err := s.modules.CreateModule(ctx, m); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("create module: %w", err)
	}
	s.invalidateTree(ctx, courseID)
	return m, nil
}

// UpdateModule replaces a module's editable fields.
func (s *CatalogService) UpdateModule(ctx context.Context, id int64, req model.ModuleRequest) (*model.Module, error) {
	m := &model.Module{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Order:       req.Order,
	}
	if err := s.modules.UpdateModule(ctx, m); err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	s.invalidateTree(ctx, m.CourseID)
	return m, nil
}

// DeleteModule removes a module with its lessons.
func (s *CatalogService) DeleteModule(ctx context.Context, id int64) error {
	courseID, err := s.modules.DeleteModule(ctx, id)
	if err != nil {
		return notFound(err, ErrNotFound)
	}
	s.invalidateTree(ctx, courseID)
	return nil
}

// ─── Lessons ────────────────────────────────────────────────────────────

// ListLessons returns a module's lessons in order.
func (s *CatalogService) ListLessons(ctx context.Context, moduleID int64) ([]model.Lesson, error) {
	if _, err := s.modules.GetModule(ctx, moduleID); err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return s.modules.ListLessons(ctx, moduleID)
}

// GetLesson returns one lesson.
func (s *CatalogService) GetLesson(ctx context.Context, id int64) (*model.Lesson, error) {
	l, err := s.modules.GetLesson(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return l, nil
}

// CreateLesson adds a lesson to a module.
func (s *CatalogService) CreateLesson(ctx context.Context, moduleID int64, req model.LessonRequest) (*model.Lesson, error) {
	m, err := s.modules.GetModule(ctx, moduleID)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}

	l := &model.Lesson{
		ModuleID:   moduleID,
		Title:      req.Title,
		Content:    req.Content,
		YoutubeURL: req.YoutubeURL,
		Order:      req.Order,
	}
	if err := s.modules.CreateLesson(ctx, l); err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	s.invalidateTree(ctx, m.CourseID)
	return l, nil
}

// UpdateLesson replaces a lesson's editable fields.
func (s *CatalogService) UpdateLesson(ctx context.Context, id int64, req model.LessonRequest) (*model.Lesson, error) {
	l := &model.Lesson{
		ID:         id,
		Title:      req.Title,
		Content:    req.Content,
		YoutubeURL: req.YoutubeURL,
		Order:      req.Order,
	}
	if err := s.modules.UpdateLesson(ctx, l); err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	s.invalidateLessonTree(ctx, id)
	return l, nil
}

// SetLessonResources stores the uploaded resource URL.
func (s *CatalogService) SetLessonResources(ctx context.Context, id int64, url string) error {
	if err := s.modules.SetLessonResources(ctx, id, url); err != nil {
		return notFound(err, ErrNotFound)
	}
	s.invalidateLessonTree(ctx, id)
	return nil
}

// DeleteLesson removes a lesson.
func (s *CatalogService) DeleteLesson(ctx context.Context, id int64) error {
	courseID, err := s.modules.CourseIDOfLesson(ctx, id)
	if err != nil {
		return notFound(err, ErrNotFound)
	}
	if _, err := s.modules.DeleteLesson(ctx, id); err != nil {
		return notFound(err, ErrNotFound)
	}
	s.invalidateTree(ctx, courseID)
	return nil
}

// ─── Course tree cache ──────────────────────────────────────────────────

func (s *CatalogService) courseTree(ctx context.Context, courseID int64) ([]model.ModuleView, error) {
	key := config.CacheKey.CourseTreeKey(courseID)
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var tree []model.ModuleView
			if err := json.Unmarshal(data, &tree); err == nil {
				return tree, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Int64("course_id", courseID).Msg("Course tree cache read failed")
		}
	}

	tree, err := s.buildTree(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(tree); err == nil {
			if err := s.rdb.Set(ctx, key, data, s.treeTTL).Err(); err != nil {
				s.log.Warn().Err(err).Int64("course_id", courseID).Msg("Course tree cache write failed")
			}
		}
	}
	return tree, nil
}

func (s *CatalogService) buildTree(ctx context.Context, courseID int64) ([]model.ModuleView, error) {
	modules, err := s.modules.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	lessons, err := s.modules.ListLessonsByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}

	byModule := make(map[int64][]model.LessonView, len(modules))
	for i := range lessons {
		byModule[lessons[i].ModuleID] = append(byModule[lessons[i].ModuleID], model.NewLessonView(&lessons[i]))
	}

	tree := make([]model.ModuleView, 0, len(modules))
	for _, m := range modules {
		views := byModule[m.ID]
		if views == nil {
			views = []model.LessonView{}
		}
		tree = append(tree, model.ModuleView{
			ID:          m.ID,
			Title:       m.Title,
			Description: m.Description,
			Order:       m.Order,
			Lessons:     views,
		})
	}
	return tree, nil
}

func (s *CatalogService) invalidateTree(ctx context.Context, courseID int64) {
	if s.rdb == nil || courseID == 0 {
		return
	}
	if err := s.rdb.Del(ctx, config.CacheKey.CourseTreeKey(courseID)).Err(); err != nil {
		s.log.Warn().Err(err).Int64("course_id", courseID).Msg("Course tree cache invalidation failed")
	}
}

func (s *CatalogService) invalidateLessonTree(ctx context.Context, lessonID int64) {
	if s.rdb == nil {
		return
	}
	courseID, err := s.modules.CourseIDOfLesson(ctx, lessonID)
	if err != nil {
		s.log.Warn().Err(err).Int64("lesson_id", lessonID).Msg("Resolve lesson course failed")
		return
	}
	s.invalidateTree(ctx, courseID)
}
